package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bottegalabs/bottega/internal/threads"
	"github.com/bottegalabs/bottega/internal/tools"
	"github.com/bottegalabs/bottega/pkg/models"
)

// scriptedReasoner returns queued completions in order.
type scriptedReasoner struct {
	script []*Completion
	calls  int
}

func (r *scriptedReasoner) Complete(_ context.Context, _ []models.Message, _ []tools.Definition) (*Completion, error) {
	if r.calls >= len(r.script) {
		return &Completion{Text: "out of script"}, nil
	}
	c := r.script[r.calls]
	r.calls++
	return c, nil
}

// countingHandler records invocations so tests can assert whether a
// gated tool ever ran.
type countingHandler struct {
	count int
}

func (h *countingHandler) handle(_ context.Context, _ json.RawMessage) (string, error) {
	h.count++
	return "executed", nil
}

func newTestAgent(t *testing.T, reasoner Reasoner, defs ...tools.Definition) *Agent {
	t.Helper()
	reg := tools.NewRegistry()
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			t.Fatalf("Register %q: %v", d.Name, err)
		}
	}
	store := threads.NewMemoryStore("")
	t.Cleanup(func() { store.Close() })
	return New(reasoner, reg, store, 0)
}

func TestSendSafeBatchRunsToCompletion(t *testing.T) {
	h := &countingHandler{}
	reasoner := &scriptedReasoner{script: []*Completion{
		{ToolCalls: []models.ToolCall{{ID: "c1", Name: "view_cart"}}},
		{Text: "Here is your cart."},
	}}
	a := newTestAgent(t, reasoner,
		tools.Definition{Name: "view_cart", Handler: h.handle})

	thread, err := a.Send(context.Background(), "", "show my cart")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if thread.AwaitingApproval() {
		t.Error("safe batch must not suspend")
	}
	if h.count != 1 {
		t.Errorf("handler ran %d times, want 1", h.count)
	}
	if got := thread.LastAssistantText(); got != "Here is your cart." {
		t.Errorf("LastAssistantText = %q", got)
	}

	// transcript: user, assistant(tool_use), tool, assistant(text)
	if len(thread.Messages) != 4 {
		t.Fatalf("transcript len = %d, want 4", len(thread.Messages))
	}
	if thread.Messages[2].Role != models.RoleTool || thread.Messages[2].ToolCallID != "c1" {
		t.Errorf("Messages[2] = %+v, want tool result for c1", thread.Messages[2])
	}
}

func TestSensitiveBatchSuspendsBeforeExecution(t *testing.T) {
	h := &countingHandler{}
	reasoner := &scriptedReasoner{script: []*Completion{
		{ToolCalls: []models.ToolCall{{ID: "c1", Name: "place_order"}}},
	}}
	a := newTestAgent(t, reasoner,
		tools.Definition{Name: "place_order", Handler: h.handle, Sensitive: true})

	thread, err := a.Send(context.Background(), "", "place my order")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !thread.AwaitingApproval() {
		t.Fatal("sensitive batch must suspend")
	}
	if h.count != 0 {
		t.Errorf("handler ran %d times before approval, want 0", h.count)
	}
	if len(thread.Pending.Calls) != 1 || thread.Pending.Calls[0].ID != "c1" {
		t.Errorf("Pending.Calls = %+v", thread.Pending.Calls)
	}
}

func TestResumeApprovedExecutesBatchOnce(t *testing.T) {
	h := &countingHandler{}
	reasoner := &scriptedReasoner{script: []*Completion{
		{ToolCalls: []models.ToolCall{{ID: "c1", Name: "place_order"}}},
		{Text: "Order placed!"},
	}}
	a := newTestAgent(t, reasoner,
		tools.Definition{Name: "place_order", Handler: h.handle, Sensitive: true})

	thread, err := a.Send(context.Background(), "", "place my order")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	thread, err = a.Resume(context.Background(), thread.ID, true, "y")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if h.count != 1 {
		t.Errorf("handler ran %d times, want 1", h.count)
	}
	if thread.AwaitingApproval() {
		t.Error("approved thread must not stay suspended")
	}
	if got := thread.LastAssistantText(); got != "Order placed!" {
		t.Errorf("LastAssistantText = %q", got)
	}

	// The decision is one-shot.
	_, err = a.Resume(context.Background(), thread.ID, true, "y")
	if !errors.Is(err, ErrNoPendingApproval) {
		t.Errorf("second Resume = %v, want ErrNoPendingApproval", err)
	}
}

func TestResumeDeniedSynthesizesResults(t *testing.T) {
	h := &countingHandler{}
	reasoner := &scriptedReasoner{script: []*Completion{
		{ToolCalls: []models.ToolCall{
			{ID: "c1", Name: "place_order"},
			{ID: "c2", Name: "place_order"},
		}},
		{Text: "Understood, let's adjust the order."},
	}}
	a := newTestAgent(t, reasoner,
		tools.Definition{Name: "place_order", Handler: h.handle, Sensitive: true})

	thread, err := a.Send(context.Background(), "", "place my order")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	thread, err = a.Resume(context.Background(), thread.ID, false, "use pickup instead")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if h.count != 0 {
		t.Errorf("handler ran %d times after denial, want 0", h.count)
	}

	var denials int
	for _, m := range thread.Messages {
		if m.Role == models.RoleTool && strings.Contains(m.Content, "API call denied by user") {
			denials++
			if !strings.Contains(m.Content, "'use pickup instead'") {
				t.Errorf("denial content = %q, want quoted reason", m.Content)
			}
		}
	}
	if denials != 2 {
		t.Errorf("denial results = %d, want one per pending call", denials)
	}
}

func TestSendWhilePendingIsProtocolViolation(t *testing.T) {
	reasoner := &scriptedReasoner{script: []*Completion{
		{ToolCalls: []models.ToolCall{{ID: "c1", Name: "place_order"}}},
	}}
	a := newTestAgent(t, reasoner,
		tools.Definition{Name: "place_order", Handler: (&countingHandler{}).handle, Sensitive: true})

	thread, err := a.Send(context.Background(), "", "place my order")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err = a.Send(context.Background(), thread.ID, "actually add a pizza")
	if !errors.Is(err, ErrAwaitingApproval) {
		t.Errorf("Send while pending = %v, want ErrAwaitingApproval", err)
	}
	var pv *ProtocolViolationError
	if !errors.As(err, &pv) {
		t.Errorf("error type = %T, want *ProtocolViolationError", err)
	}
}

func TestResumeWithoutPendingIsProtocolViolation(t *testing.T) {
	reasoner := &scriptedReasoner{script: []*Completion{{Text: "Hi!"}}}
	a := newTestAgent(t, reasoner)

	thread, err := a.Send(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, err = a.Resume(context.Background(), thread.ID, true, "y")
	if !errors.Is(err, ErrNoPendingApproval) {
		t.Errorf("Resume = %v, want ErrNoPendingApproval", err)
	}
}

func TestMaxTurnsGuard(t *testing.T) {
	h := &countingHandler{}
	// Script never ends in a text-only turn.
	script := make([]*Completion, 0, DefaultMaxTurns+1)
	for i := 0; i <= DefaultMaxTurns; i++ {
		script = append(script, &Completion{
			ToolCalls: []models.ToolCall{{ID: "c", Name: "view_cart"}},
		})
	}
	a := newTestAgent(t, &scriptedReasoner{script: script},
		tools.Definition{Name: "view_cart", Handler: h.handle})

	_, err := a.Send(context.Background(), "", "loop forever")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("Send = %v, want ErrMaxTurns", err)
	}
	if h.count != DefaultMaxTurns {
		t.Errorf("handler ran %d times, want %d", h.count, DefaultMaxTurns)
	}
}
