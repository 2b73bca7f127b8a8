package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bottegalabs/bottega/internal/agent"
	"github.com/bottegalabs/bottega/internal/api/handlers"
	"github.com/bottegalabs/bottega/internal/config"
	"github.com/bottegalabs/bottega/internal/threads"
	"github.com/bottegalabs/bottega/internal/tools"
	"github.com/bottegalabs/bottega/pkg/models"
)

// scriptedReasoner returns queued completions in order.
type scriptedReasoner struct {
	script []*agent.Completion
	calls  int
}

func (r *scriptedReasoner) Complete(_ context.Context, _ []models.Message, _ []tools.Definition) (*agent.Completion, error) {
	if r.calls >= len(r.script) {
		return &agent.Completion{Text: "out of script"}, nil
	}
	c := r.script[r.calls]
	r.calls++
	return c, nil
}

func newTestServer(t *testing.T, reasoner agent.Reasoner, defs ...tools.Definition) http.Handler {
	t.Helper()
	reg := tools.NewRegistry()
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			t.Fatalf("Register %q: %v", d.Name, err)
		}
	}
	store := threads.NewMemoryStore("")
	t.Cleanup(func() { store.Close() })

	bot := agent.New(reasoner, reg, store, 0)
	return NewRouter(config.Load(), handlers.New(bot, store))
}

func postChat(t *testing.T, srv http.Handler, body models.ChatRequest) (*httptest.ResponseRecorder, models.ChatResponse) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp models.ChatResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestChatRejectsMissingMessage(t *testing.T) {
	srv := newTestServer(t, &scriptedReasoner{})

	rec, _ := postChat(t, srv, models.ChatRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "No message provided" {
		t.Errorf("error = %q, want \"No message provided\"", body["error"])
	}
}

func TestChatBasicTurn(t *testing.T) {
	srv := newTestServer(t, &scriptedReasoner{script: []*agent.Completion{
		{Text: "Welcome to Bottega! 🍝"},
	}})

	rec, resp := postChat(t, srv, models.ChatRequest{Message: "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if resp.ThreadID == "" {
		t.Error("thread_id must be generated and echoed")
	}
	if resp.RequiresApproval {
		t.Error("plain text turn must not require approval")
	}
	if resp.Messages != "Welcome to Bottega! 🍝" {
		t.Errorf("messages = %q", resp.Messages)
	}
}

func TestChatThreadContinuity(t *testing.T) {
	srv := newTestServer(t, &scriptedReasoner{script: []*agent.Completion{
		{Text: "first"},
		{Text: "second"},
	}})

	_, resp1 := postChat(t, srv, models.ChatRequest{Message: "one"})
	_, resp2 := postChat(t, srv, models.ChatRequest{Message: "two", ThreadID: resp1.ThreadID})

	if resp2.ThreadID != resp1.ThreadID {
		t.Errorf("thread_id changed: %q → %q", resp1.ThreadID, resp2.ThreadID)
	}

	// The transcript is inspectable.
	req := httptest.NewRequest(http.MethodGet, "/threads/"+resp1.ThreadID, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET thread status = %d", rec.Code)
	}
	var thread models.Thread
	if err := json.Unmarshal(rec.Body.Bytes(), &thread); err != nil {
		t.Fatalf("decode thread: %v", err)
	}
	if len(thread.Messages) != 4 {
		t.Errorf("transcript len = %d, want 4", len(thread.Messages))
	}
}

func TestChatApprovalFlow(t *testing.T) {
	executed := 0
	srv := newTestServer(t,
		&scriptedReasoner{script: []*agent.Completion{
			{ToolCalls: []models.ToolCall{{ID: "c1", Name: "place_order"}}},
			{Text: "Your order is in! ✅"},
		}},
		tools.Definition{
			Name:      "place_order",
			Sensitive: true,
			Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
				executed++
				return "Order placed successfully.", nil
			},
		})

	_, resp := postChat(t, srv, models.ChatRequest{Message: "place my order"})
	if !resp.RequiresApproval {
		t.Fatal("sensitive batch must set requires_approval")
	}
	if executed != 0 {
		t.Fatalf("handler ran %d times before approval", executed)
	}

	rec, resp := postChat(t, srv, models.ChatRequest{ThreadID: resp.ThreadID, Confirmation: "y"})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmation status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if executed != 1 {
		t.Errorf("handler ran %d times after approval, want 1", executed)
	}
	if resp.RequiresApproval {
		t.Error("approved turn must clear requires_approval")
	}
	if resp.Messages != "Your order is in! ✅" {
		t.Errorf("messages = %q", resp.Messages)
	}

	// Decisions are one-shot.
	rec, _ = postChat(t, srv, models.ChatRequest{ThreadID: resp.ThreadID, Confirmation: "y"})
	if rec.Code != http.StatusConflict {
		t.Errorf("repeat confirmation status = %d, want 409", rec.Code)
	}
}

func TestChatDenialFlow(t *testing.T) {
	executed := 0
	srv := newTestServer(t,
		&scriptedReasoner{script: []*agent.Completion{
			{ToolCalls: []models.ToolCall{{ID: "c1", Name: "place_order"}}},
			{Text: "No problem, what should we change?"},
		}},
		tools.Definition{
			Name:      "place_order",
			Sensitive: true,
			Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
				executed++
				return "Order placed successfully.", nil
			},
		})

	_, resp := postChat(t, srv, models.ChatRequest{Message: "place my order"})
	if !resp.RequiresApproval {
		t.Fatal("sensitive batch must set requires_approval")
	}

	rec, resp := postChat(t, srv, models.ChatRequest{ThreadID: resp.ThreadID, Confirmation: "wait, make it pickup"})
	if rec.Code != http.StatusOK {
		t.Fatalf("denial status = %d", rec.Code)
	}
	if executed != 0 {
		t.Errorf("handler ran %d times after denial, want 0", executed)
	}
	if resp.Messages != "No problem, what should we change?" {
		t.Errorf("messages = %q", resp.Messages)
	}
}

func TestGetThreadMissing(t *testing.T) {
	srv := newTestServer(t, &scriptedReasoner{})

	req := httptest.NewRequest(http.MethodGet, "/threads/ghost", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, &scriptedReasoner{})

	for _, path := range []string{"/health", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}
