package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/bottegalabs/bottega/internal/tools"
	"github.com/bottegalabs/bottega/pkg/models"
)

// Completion is one assistant turn as seen by the control loop: visible
// text and zero or more requested tool calls.
type Completion struct {
	Text      string
	ToolCalls []models.ToolCall
}

// Reasoner produces the next assistant turn from the conversation so
// far. The control loop depends on this interface so tests can drive
// the state machine with a scripted model.
type Reasoner interface {
	Complete(ctx context.Context, history []models.Message, defs []tools.Definition) (*Completion, error)
}

const (
	defaultMaxTokens = 4096

	// maxEmptyRetries bounds the re-prompt loop when the model returns
	// neither text nor tool calls.
	maxEmptyRetries = 2

	emptyReprompt = "Respond with a real output."

	emptyFallback = "I'm sorry, I wasn't able to come up with a response just now. Could you try rephrasing your request? 🙏"
)

// AnthropicReasoner implements Reasoner against the Anthropic Messages
// API. Transient transport failures are retried with exponential
// backoff before surfacing to the control loop.
type AnthropicReasoner struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicReasoner creates a reasoner using API key from the env.
func NewAnthropicReasoner(model string) *AnthropicReasoner {
	c := anthropic.NewClient()
	return &AnthropicReasoner{
		client:    &c,
		model:     anthropic.Model(model),
		maxTokens: defaultMaxTokens,
	}
}

func (r *AnthropicReasoner) Complete(ctx context.Context, history []models.Message, defs []tools.Definition) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt(time.Now())},
		},
		Messages: buildMessages(history),
		Tools:    anthropicTools(defs),
	}

	for attempt := 0; ; attempt++ {
		msg, err := r.send(ctx, params)
		if err != nil {
			return nil, err
		}

		completion := parseMessage(msg)
		if completion.Text != "" || len(completion.ToolCalls) > 0 {
			return completion, nil
		}

		if attempt >= maxEmptyRetries {
			log.Warn().Int("attempts", attempt+1).Msg("Model kept returning empty output, using fallback text")
			return &Completion{Text: emptyFallback}, nil
		}

		log.Debug().Int("attempt", attempt+1).Msg("Empty model output, re-prompting")
		params.Messages = append(params.Messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(emptyReprompt)))
	}
}

// send performs one API call with retry on transient failures.
func (r *AnthropicReasoner) send(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var msg *anthropic.Message

	op := func() error {
		var err error
		msg, err = r.client.Messages.New(ctx, params)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != 429 {
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Msg("Model call failed, retrying")
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	return msg, nil
}

// buildMessages reconstructs the API conversation from the persisted
// transcript. Consecutive tool messages collapse into a single user
// message so each tool_use block is answered by an adjacent
// tool_result.
func buildMessages(history []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			flushResults()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))

		case models.RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: tc.Arguments,
					},
				})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case models.RoleTool:
			pendingResults = append(pendingResults,
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		}
	}
	flushResults()
	return out
}

// parseMessage extracts visible text and tool calls from a response.
func parseMessage(msg *anthropic.Message) *Completion {
	c := &Completion{}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text == "" {
				continue
			}
			if c.Text == "" {
				c.Text = v.Text
			} else {
				c.Text += "\n" + v.Text
			}
		case anthropic.ToolUseBlock:
			c.ToolCalls = append(c.ToolCalls, models.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	return c
}

func anthropicTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: d.InputSchema,
		}})
	}
	return out
}
