package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bottegalabs/bottega/pkg/models"
)

var tracer = otel.Tracer("bottega-tools")

// Executor runs batches of tool calls requested by one assistant turn.
// Calls execute strictly in order: later calls may depend on earlier
// side effects (an item must be in the cart before placing the order).
// Calls are independent otherwise — a failure is surfaced per call as
// an error result and never aborts the rest of the batch.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(reg *Registry) *Executor {
	return &Executor{registry: reg}
}

// ExecuteBatch runs each call and returns one result per call, in the
// same order, tagged with the originating call id. Tool failures of
// any kind (bad arguments, handler errors, panics) become error
// results the model can react to; this method itself never fails.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, call))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, call models.ToolCall) (result models.ToolResult) {
	ctx, span := tracer.Start(ctx, "tool."+call.Name)
	defer span.End()
	span.SetAttributes(attribute.String("tool.call_id", call.ID))

	start := time.Now()

	// A panicking handler must not take the loop down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", call.Name).
				Str("call_id", call.ID).
				Any("panic", r).
				Msg("Tool handler panicked")
			result = errorResult(call, fmt.Sprintf("internal error: %v", r))
		}
	}()

	def, err := e.registry.Lookup(call.Name)
	if err != nil {
		// The model asked for a tool that does not exist; report it as
		// a correctable result rather than failing the turn.
		return errorResult(call, err.Error())
	}

	content, err := def.Handler(ctx, call.Arguments)
	duration := time.Since(start)

	if err != nil {
		var verr *ValidationError
		event := log.Warn()
		if errors.As(err, &verr) {
			event = log.Debug()
		}
		event.
			Str("tool", call.Name).
			Str("call_id", call.ID).
			Dur("duration", duration).
			Err(err).
			Msg("Tool call failed")
		return errorResult(call, err.Error())
	}

	log.Debug().
		Str("tool", call.Name).
		Str("call_id", call.ID).
		Dur("duration", duration).
		Int("output_bytes", len(content)).
		Msg("Tool call complete")

	return models.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    content,
	}
}

// errorResult formats a failure so the model can self-correct.
func errorResult(call models.ToolCall, detail string) models.ToolResult {
	return models.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
		Content:    fmt.Sprintf("Error: %s\n Please fix your mistakes.", detail),
		IsError:    true,
	}
}
