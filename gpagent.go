// Package gpagent provides a high-level façade over the stateful tool-use
// agent loop: durable per-session transcripts, an execution log of every tool
// invocation, a schema-validating tool registry and strictly serialized
// session access. Most applications interact with this package by:
//  1. Creating an Agent via New() with a decision-function backend
//     (optionally overriding the default in-memory stores)
//  2. Registering one or more tools
//  3. Submitting user turns with Chat, or driving the runner directly for
//     long-running tool flows
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply the file-backed stores and
// a structured logger.
package gpagent

import (
	"context"
	"fmt"

	"github.com/gpagent/gpagent/agent"
	"github.com/gpagent/gpagent/config"
	"github.com/gpagent/gpagent/logging"
	"github.com/gpagent/gpagent/model"
	"github.com/gpagent/gpagent/runner"
	"github.com/gpagent/gpagent/session"
	"github.com/gpagent/gpagent/store"
	"github.com/gpagent/gpagent/tool"
)

// Options configures the Agent façade.
type Options struct {
	// TranscriptStore persists conversation turns (defaults to in-memory).
	TranscriptStore store.TranscriptStore
	// ExecutionLog persists tool invocation records (defaults to in-memory).
	ExecutionLog store.ExecutionLog
	// AcquirePolicy selects session contention handling.
	AcquirePolicy session.AcquirePolicy
	// MaxToolRounds caps decide→act cycles per submitted turn.
	MaxToolRounds int
	// Instructions is the system prompt handed to the decision function.
	Instructions string
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Agent is the high-level façade aggregating the runner, registry and stores.
type Agent struct {
	registry *tool.Registry
	runner   *runner.Runner
}

// New creates an Agent around the given decision-function backend. Any unset
// service is initialized with an in-memory implementation.
func New(decider model.Decider, optFns ...func(o *Options)) *Agent {
	opts := Options{
		TranscriptStore: store.NewInMemoryTranscripts(),
		ExecutionLog:    store.NewInMemoryLog(),
		AcquirePolicy:   session.FailFast,
		MaxToolRounds:   agent.DefaultMaxRounds,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(tool.WithLogger(opts.Logger))
	r := runner.New(decider, registry, func(o *runner.Options) {
		o.TranscriptStore = opts.TranscriptStore
		o.ExecutionLog = opts.ExecutionLog
		o.AcquirePolicy = opts.AcquirePolicy
		o.MaxToolRounds = opts.MaxToolRounds
		o.Instructions = opts.Instructions
		o.Logger = opts.Logger
	})

	return &Agent{registry: registry, runner: r}
}

// NewFromConfig creates an Agent from a parsed gpagent.yaml configuration.
func NewFromConfig(cfg *config.Config, decider model.Decider, optFns ...func(o *Options)) (*Agent, error) {
	registry := tool.NewRegistry()
	r, err := runner.NewFromConfig(cfg, decider, registry, func(o *runner.Options) {
		opts := Options{
			AcquirePolicy: session.ParsePolicy(cfg.Session.AcquirePolicy),
			MaxToolRounds: cfg.Agent.MaxToolRounds,
			Instructions:  cfg.Agent.Instructions,
		}
		for _, fn := range optFns {
			fn(&opts)
		}
		o.AcquirePolicy = opts.AcquirePolicy
		o.MaxToolRounds = opts.MaxToolRounds
		o.Instructions = opts.Instructions
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
	})
	if err != nil {
		return nil, err
	}
	return &Agent{registry: registry, runner: r}, nil
}

// RegisterTool adds a tool to the registry. It panics on duplicate names;
// registration is process-startup wiring where that is a programming error.
func (a *Agent) RegisterTool(t tool.Tool) { a.registry.MustRegister(t) }

// Runner exposes the underlying runner for long-running tool flows,
// cancellation and transcript access.
func (a *Agent) Runner() *runner.Runner { return a.runner }

// Chat submits one user turn and returns the final answer text. Steps that
// suspend on a long-running tool or fail report an error; use the runner
// directly when those outcomes need to be handled distinctly.
func (a *Agent) Chat(ctx context.Context, sessionID, text string) (string, error) {
	outcome, err := a.runner.SubmitTurn(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	switch out := outcome.(type) {
	case agent.FinalAnswer:
		return out.Text, nil
	case agent.ToolInvocation:
		return "", fmt.Errorf("session %s awaiting long-running tool %s", sessionID, out.Pending.Name)
	case agent.Failure:
		return "", fmt.Errorf("step failed (%s): %s", out.Kind, out.Detail)
	default:
		return "", fmt.Errorf("unexpected step outcome %T", outcome)
	}
}
