// Package tools defines the agent's tool contracts: schema-typed
// definitions, the startup-time registry, and the batch executor that
// turns assistant tool calls into transcript results.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Handler executes one tool call using the raw JSON arguments the
// model produced. The returned string is the tool result content shown
// back to the model; an error becomes a correctable error result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Definition declares a callable capability exposed to the model.
// Sensitive tools require human approval before execution; the
// classification is fixed at registration.
type Definition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Sensitive   bool
	Handler     Handler
}

// GenerateSchema derives the JSON Schema for a tool's input struct.
// Field tags carry jsonschema_description; optional fields use
// `json:"...,omitempty"`.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// ValidationError marks a tool failure caused by bad arguments rather
// than a broken backend. Both surface to the model as correctable
// results; the distinction matters for logging.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
