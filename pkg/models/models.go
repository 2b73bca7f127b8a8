// Package models defines the shared data types for the Bottega ordering
// service: conversation threads, messages, tool calls, and the chat API
// contract.
package models

import (
	"encoding/json"
	"time"
)

// ── Messages ────────────────────────────────────────────────

// Role identifies who produced a message in a thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the assistant.
// Arguments carry the raw JSON input exactly as the model produced it;
// each tool unmarshals into its own typed input struct.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of executing (or denying) one tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Message is one entry in a thread's append-only log.
//
// Exactly one shape per role:
//   - user:      Content only
//   - assistant: Content and/or ToolCalls
//   - tool:      Content plus the ToolCallID it answers
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, CreatedAt: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls, CreatedAt: time.Now().UTC()}
}

// NewToolResultMessage converts a tool result into a transcript message.
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: result.ToolCallID,
		IsError:    result.IsError,
		CreatedAt:  time.Now().UTC(),
	}
}

// ── Threads ─────────────────────────────────────────────────

// PendingApproval is the tool batch a suspended thread is waiting on.
// It is set when the assistant requests at least one sensitive tool and
// cleared exactly once when the approval decision arrives.
type PendingApproval struct {
	Calls       []ToolCall `json:"calls"`
	RequestedAt time.Time  `json:"requested_at"`
}

// Thread is one persistent customer conversation. Messages are
// append-only; Pending is non-nil only while awaiting approval.
type Thread struct {
	ID        string           `json:"id"`
	Messages  []Message        `json:"messages"`
	Pending   *PendingApproval `json:"pending,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of the thread so stores can hand out
// state without sharing slices with callers.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	out := *t
	out.Messages = make([]Message, len(t.Messages))
	copy(out.Messages, t.Messages)
	if t.Pending != nil {
		p := *t.Pending
		p.Calls = make([]ToolCall, len(t.Pending.Calls))
		copy(p.Calls, t.Pending.Calls)
		out.Pending = &p
	}
	return &out
}

// AwaitingApproval reports whether the thread is suspended on a
// sensitive tool batch.
func (t *Thread) AwaitingApproval() bool {
	return t != nil && t.Pending != nil
}

// LastAssistantText returns the text of the most recent assistant
// message, or "" if none exists yet.
func (t *Thread) LastAssistantText() string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleAssistant && t.Messages[i].Content != "" {
			return t.Messages[i].Content
		}
	}
	return ""
}

// ── Chat API contract ───────────────────────────────────────

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message      string `json:"message"`
	ThreadID     string `json:"thread_id,omitempty"`
	Confirmation string `json:"confirmation,omitempty"`
}

// ChatResponse is the reply to POST /chat. RequiresApproval is true
// when the turn suspended on a sensitive tool batch; the caller should
// repeat the request with a confirmation decision.
type ChatResponse struct {
	Messages         string `json:"messages"`
	ThreadID         string `json:"thread_id"`
	RequiresApproval bool   `json:"requires_approval"`
}
