// Package anthropic provides a model.Decider backed by the Anthropic Messages
// API with tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/model"
)

// Options configures the Anthropic decider (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Decider wraps the Anthropic Messages API behind model.Decider.
type Decider struct {
	client *anthropic.Client
	opts   Options
}

// NewDecider creates an Anthropic decider using the official client.
func NewDecider(optFns ...func(o *Options)) *Decider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Decider{client: &client, opts: opts}
}

// NewDeciderFromClient creates an Anthropic decider from an existing client.
func NewDeciderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Decider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Decider{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Decide implements model.Decider via a non-streaming Messages call.
func (d *Decider) Decide(ctx context.Context, req model.Request) (model.Action, error) {
	params := anthropic.MessageNewParams{
		Model:       d.opts.Model,
		Messages:    buildMessages(req.History),
		MaxTokens:   d.opts.MaxTokens,
		Temperature: anthropic.Float(d.opts.Temperature),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := d.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		switch block.Type {
		case "tool_use":
			toolBlock := block.AsToolUse()
			args, err := json.Marshal(toolBlock.Input)
			if err != nil {
				return nil, fmt.Errorf("anthropic: decode tool input: %w", err)
			}
			return model.Call{Name: toolBlock.Name, Arguments: args}, nil
		case "text":
			text += block.AsText().Text
		}
	}
	return model.Answer{Text: text}, nil
}

// Info reports backend metadata.
func (d *Decider) Info() model.Info {
	return model.Info{Name: string(d.opts.Model), Provider: "anthropic"}
}

// buildMessages converts transcript turns to Anthropic message params. Tool
// results are emitted as user-role tool_result blocks immediately after the
// assistant tool_use block carrying the matching correlation ID.
func buildMessages(history []core.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, t := range history {
		switch t.Role {
		case core.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case core.RoleAgent:
			switch {
			case t.Call != nil:
				var input any
				if len(t.Call.Arguments) > 0 {
					if err := json.Unmarshal(t.Call.Arguments, &input); err != nil {
						input = string(t.Call.Arguments)
					}
				}
				messages = append(messages, anthropic.NewAssistantMessage(
					anthropic.NewToolUseBlock(t.Call.ID, input, t.Call.Name),
				))
			case t.Text != "":
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
			}
		case core.RoleTool:
			if t.Result != nil {
				messages = append(messages, anthropic.NewUserMessage(
					anthropic.NewToolResultBlock(t.Result.CallID, resultText(*t.Result), t.Result.Failed()),
				))
			}
		}
	}
	return messages
}

func buildTools(defs []model.Definition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if def.Parameters != nil {
			if properties, ok := def.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredStrings(def.Parameters["required"])
		}
		tools[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: inputSchema,
			},
		}
	}
	return tools
}

func requiredStrings(required any) []string {
	switch req := required.(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func resultText(r core.ToolResult) string {
	if r.Failed() {
		return r.Error
	}
	if s, ok := r.Response.(string); ok {
		return s
	}
	b, err := json.Marshal(r.Response)
	if err != nil {
		return fmt.Sprintf("%v", r.Response)
	}
	return string(b)
}
