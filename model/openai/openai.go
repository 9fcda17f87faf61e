// Package openai provides a model.Decider backed by the OpenAI Chat
// Completions API with function/tool calling. It adapts gpagent's transcript
// turns into the SDK's message format and maps the completion back into a
// single Answer or Call action.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/model"
)

// Options configure the OpenAI decider. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Decider wraps the OpenAI Chat Completions API behind model.Decider.
type Decider struct {
	client *openai.Client
	opts   Options
}

// NewDecider creates an OpenAI decider using the official client with
// credentials taken from the environment.
func NewDecider(optFns ...func(o *Options)) *Decider {
	client := openai.NewClient()
	return NewDeciderFromClient(&client, optFns...)
}

// NewDeciderFromClient creates an OpenAI decider from an existing client.
func NewDeciderFromClient(client *openai.Client, optFns ...func(o *Options)) *Decider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Decider{client: client, opts: opts}
}

// Decide implements model.Decider via a non-streaming chat completion.
func (d *Decider) Decide(ctx context.Context, req model.Request) (model.Action, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               d.opts.Model,
		Temperature:         openai.Float(d.opts.Temperature),
		MaxCompletionTokens: openai.Int(d.opts.MaxCompletionTokens),
	}
	if tools := buildTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := d.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		return model.Call{
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}, nil
	}
	return model.Answer{Text: msg.Content}, nil
}

// Info reports backend metadata.
func (d *Decider) Info() model.Info {
	return model.Info{Name: d.opts.Model, Provider: "openai"}
}

// buildMessages converts transcript turns into OpenAI chat messages. Tool-call
// marker turns become assistant tool_calls entries and tool turns become tool
// messages referencing the same correlation ID, so replayed history stays
// well-formed for the API.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, t := range req.History {
		switch t.Role {
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(t.Text))
		case core.RoleAgent:
			switch {
			case t.Call != nil:
				messages = append(messages, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Role: "assistant",
						ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
							ID:   t.Call.ID,
							Type: "function",
							Function: openai.ChatCompletionMessageToolCallFunctionParam{
								Name:      t.Call.Name,
								Arguments: string(t.Call.Arguments),
							},
						}},
					},
				})
			case t.Text != "":
				messages = append(messages, openai.AssistantMessage(t.Text))
			}
		case core.RoleTool:
			if t.Result != nil {
				messages = append(messages, openai.ToolMessage(resultText(*t.Result), t.Result.CallID))
			}
		}
	}
	return messages
}

func buildTools(defs []model.Definition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

// resultText renders a tool result for the model: the error descriptor when
// the invocation failed, otherwise the response serialized to JSON.
func resultText(r core.ToolResult) string {
	if r.Failed() {
		return fmt.Sprintf("error: %s", r.Error)
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
