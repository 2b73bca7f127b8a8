// Package agent implements the conversational control loop for the
// Bottega ordering assistant:
//
//	user message → model → if tool_calls, execute each via the tool
//	executor → feed results back → repeat until text response or
//	max_turns hit.
//
// Batches containing a sensitive tool suspend the thread instead of
// executing: the thread persists in an awaiting-approval state and the
// loop resumes only when the caller delivers an approve or deny
// decision. Decisions are consumed exactly once.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bottegalabs/bottega/internal/threads"
	"github.com/bottegalabs/bottega/internal/tools"
	"github.com/bottegalabs/bottega/pkg/models"
)

var tracer = otel.Tracer("bottega-agent")

// DefaultMaxTurns is the maximum number of model ↔ tool loops per turn.
const DefaultMaxTurns = 10

// denialResultTemplate is fed back to the model in place of real tool
// output when the user denies a sensitive batch.
const denialResultTemplate = "API call denied by user. Reasoning: '%s'. Continue assisting, accounting for the user's input."

// ProtocolViolationError marks a request that breaks the approval
// protocol. These are caller mistakes, not internal failures, and map
// to 4xx statuses at the HTTP layer.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation: " + e.Reason
}

var (
	// ErrAwaitingApproval is returned when a new message arrives while
	// the thread is suspended on a sensitive tool batch.
	ErrAwaitingApproval error = &ProtocolViolationError{Reason: "thread is awaiting approval, a confirmation decision is required"}

	// ErrNoPendingApproval is returned when a decision arrives for a
	// thread that is not suspended.
	ErrNoPendingApproval error = &ProtocolViolationError{Reason: "thread has no pending approval"}

	// ErrMaxTurns is returned when the model keeps requesting tools
	// past the configured turn budget.
	ErrMaxTurns = errors.New("max turns exceeded")
)

// Agent drives conversation threads through the model and tool loop.
type Agent struct {
	reasoner Reasoner
	registry *tools.Registry
	executor *tools.Executor
	threads  threads.Store
	maxTurns int
	locks    *threadLocks
}

// New creates an agent. maxTurns <= 0 selects DefaultMaxTurns.
func New(reasoner Reasoner, registry *tools.Registry, store threads.Store, maxTurns int) *Agent {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Agent{
		reasoner: reasoner,
		registry: registry,
		executor: tools.NewExecutor(registry),
		threads:  store,
		maxTurns: maxTurns,
		locks:    newThreadLocks(),
	}
}

// Send delivers a user message to a thread and runs the loop until the
// model produces a final text response or suspends on a sensitive
// batch. A missing threadID starts a new thread.
func (a *Agent) Send(ctx context.Context, threadID, message string) (*models.Thread, error) {
	if threadID == "" {
		threadID = uuid.NewString()
	}

	release := a.locks.acquire(threadID)
	defer release()

	thread, created, err := a.loadOrCreate(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.AwaitingApproval() {
		return thread, ErrAwaitingApproval
	}

	ctx, span := tracer.Start(ctx, "agent.send")
	span.SetAttributes(attribute.String("thread.id", threadID))
	defer span.End()

	thread.Messages = append(thread.Messages, models.NewUserMessage(message))
	if err := a.persist(ctx, thread, created); err != nil {
		return nil, err
	}

	return a.run(ctx, thread)
}

// Resume consumes the pending approval decision for a suspended thread
// and continues the loop. The decision is one-shot: the pending batch
// is cleared before any handler runs, so a retry after a crash cannot
// execute the batch twice.
func (a *Agent) Resume(ctx context.Context, threadID string, approved bool, reason string) (*models.Thread, error) {
	release := a.locks.acquire(threadID)
	defer release()

	thread, err := a.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if !thread.AwaitingApproval() {
		return thread, ErrNoPendingApproval
	}

	ctx, span := tracer.Start(ctx, "agent.resume")
	span.SetAttributes(
		attribute.String("thread.id", threadID),
		attribute.Bool("approved", approved),
	)
	defer span.End()

	calls := thread.Pending.Calls
	thread.Pending = nil
	if err := a.persist(ctx, thread, false); err != nil {
		return nil, err
	}

	var results []models.ToolResult
	if approved {
		results = a.executor.ExecuteBatch(ctx, calls)
	} else {
		results = denialResults(calls, reason)
	}

	for _, res := range results {
		thread.Messages = append(thread.Messages, models.NewToolResultMessage(res))
	}
	if err := a.persist(ctx, thread, false); err != nil {
		return nil, err
	}

	log.Info().
		Str("thread_id", threadID).
		Bool("approved", approved).
		Int("tool_calls", len(calls)).
		Msg("Approval decision consumed")

	return a.run(ctx, thread)
}

// Thread returns the persisted state of a thread.
func (a *Agent) Thread(ctx context.Context, threadID string) (*models.Thread, error) {
	return a.threads.Get(ctx, threadID)
}

// run iterates model calls and tool execution until a final text
// response, a suspension, or the turn budget is exhausted. The thread
// is persisted after every mutation so a crash mid-loop loses at most
// the in-flight model call.
func (a *Agent) run(ctx context.Context, thread *models.Thread) (*models.Thread, error) {
	defs := a.registry.Definitions()

	for turn := 1; turn <= a.maxTurns; turn++ {
		completion, err := a.reasoner.Complete(ctx, thread.Messages, defs)
		if err != nil {
			return thread, fmt.Errorf("turn %d: %w", turn, err)
		}

		thread.Messages = append(thread.Messages,
			models.NewAssistantMessage(completion.Text, completion.ToolCalls))

		if len(completion.ToolCalls) == 0 {
			if err := a.persist(ctx, thread, false); err != nil {
				return nil, err
			}
			log.Info().
				Str("thread_id", thread.ID).
				Int("turns", turn).
				Msg("Turn complete")
			return thread, nil
		}

		if name, sensitive := a.firstSensitive(completion.ToolCalls); sensitive {
			thread.Pending = &models.PendingApproval{
				Calls:       completion.ToolCalls,
				RequestedAt: time.Now().UTC(),
			}
			if err := a.persist(ctx, thread, false); err != nil {
				return nil, err
			}
			log.Info().
				Str("thread_id", thread.ID).
				Str("tool", name).
				Int("tool_calls", len(completion.ToolCalls)).
				Msg("Thread suspended on sensitive tool batch")
			return thread, nil
		}

		results := a.executor.ExecuteBatch(ctx, completion.ToolCalls)
		for _, res := range results {
			thread.Messages = append(thread.Messages, models.NewToolResultMessage(res))
		}
		if err := a.persist(ctx, thread, false); err != nil {
			return nil, err
		}

		log.Debug().
			Str("thread_id", thread.ID).
			Int("turn", turn).
			Int("tool_calls", len(completion.ToolCalls)).
			Msg("Loop continuing")
	}

	log.Warn().
		Str("thread_id", thread.ID).
		Int("max_turns", a.maxTurns).
		Msg("Turn budget exhausted")
	return thread, ErrMaxTurns
}

// firstSensitive returns the name of the first sensitive tool in the
// batch, if any. One sensitive call gates the whole batch.
func (a *Agent) firstSensitive(calls []models.ToolCall) (string, bool) {
	for _, c := range calls {
		if a.registry.IsSensitive(c.Name) {
			return c.Name, true
		}
	}
	return "", false
}

// denialResults synthesizes one result per pending call without
// running any handler.
func denialResults(calls []models.ToolCall, reason string) []models.ToolResult {
	content := fmt.Sprintf(denialResultTemplate, reason)
	out := make([]models.ToolResult, len(calls))
	for i, c := range calls {
		out[i] = models.ToolResult{
			ToolCallID: c.ID,
			Name:       c.Name,
			Content:    content,
		}
	}
	return out
}

func (a *Agent) loadOrCreate(ctx context.Context, id string) (*models.Thread, bool, error) {
	thread, err := a.threads.Get(ctx, id)
	if err == nil {
		return thread, false, nil
	}
	var notFound *threads.ErrNotFound
	if !errors.As(err, &notFound) {
		return nil, false, err
	}
	now := time.Now().UTC()
	return &models.Thread{ID: id, CreatedAt: now, UpdatedAt: now}, true, nil
}

func (a *Agent) persist(ctx context.Context, thread *models.Thread, create bool) error {
	thread.UpdatedAt = time.Now().UTC()
	if create {
		return a.threads.Create(ctx, thread)
	}
	return a.threads.Update(ctx, thread)
}
