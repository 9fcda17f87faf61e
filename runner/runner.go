package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/gpagent/gpagent/agent"
	"github.com/gpagent/gpagent/config"
	"github.com/gpagent/gpagent/core"
	"github.com/gpagent/gpagent/logging"
	"github.com/gpagent/gpagent/model"
	"github.com/gpagent/gpagent/session"
	"github.com/gpagent/gpagent/store"
	"github.com/gpagent/gpagent/tool"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// TranscriptStore persists conversation turns. Defaults to in-memory.
	TranscriptStore store.TranscriptStore
	// ExecutionLog persists tool invocation records. Defaults to in-memory.
	ExecutionLog store.ExecutionLog
	// AcquirePolicy selects blocking vs fail-fast session contention.
	AcquirePolicy session.AcquirePolicy
	// MaxToolRounds caps decide→act cycles per submitted turn.
	MaxToolRounds int
	// Instructions is the system prompt handed to the decision function.
	Instructions string
	// Logger receives structured lifecycle events.
	Logger logging.Logger
}

// Runner coordinates step execution: resolves the session's exclusive handle,
// drives the agent loop, and releases the handle when the step settles.
type Runner struct {
	manager     *session.Manager
	loop        *agent.Loop
	transcripts store.TranscriptStore
	execLog     store.ExecutionLog
	logger      logging.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New constructs a Runner with optional overrides.
func New(decider model.Decider, registry *tool.Registry, optFns ...func(o *Options)) *Runner {
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

	manager := session.NewManager(opts.TranscriptStore, func(o *session.Options) {
		o.Policy = opts.AcquirePolicy
		o.Logger = opts.Logger
	})
	loop := agent.NewLoop(decider, registry, opts.TranscriptStore, opts.ExecutionLog, func(o *agent.Options) {
		o.MaxRounds = opts.MaxToolRounds
		o.Instructions = opts.Instructions
		o.Logger = opts.Logger
	})

	return &Runner{
		manager:     manager,
		loop:        loop,
		transcripts: opts.TranscriptStore,
		execLog:     opts.ExecutionLog,
		logger:      opts.Logger,
		active:      make(map[string]context.CancelFunc),
	}
}

// NewFromConfig constructs a Runner from a parsed configuration, opening the
// durable file stores when storage directories are configured.
func NewFromConfig(cfg *config.Config, decider model.Decider, registry *tool.Registry, optFns ...func(o *Options)) (*Runner, error) {
	var (
		transcripts store.TranscriptStore = store.NewInMemoryTranscripts()
		execLog     store.ExecutionLog    = store.NewInMemoryLog()
	)
	if cfg.Storage.DataDir != "" {
		ft, err := store.NewFileTranscripts(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		fl, err := store.NewFileLog(cfg.Storage.LogDir)
		if err != nil {
			return nil, fmt.Errorf("open execution log: %w", err)
		}
		transcripts, execLog = ft, fl
	}

	logger := logging.New(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, nil)

	r := New(decider, registry, func(o *Options) {
		o.TranscriptStore = transcripts
		o.ExecutionLog = execLog
		o.AcquirePolicy = session.ParsePolicy(cfg.Session.AcquirePolicy)
		o.MaxToolRounds = cfg.Agent.MaxToolRounds
		o.Instructions = cfg.Agent.Instructions
		o.Logger = logger
		for _, fn := range optFns {
			fn(o)
		}
	})
	return r, nil
}

// SubmitTurn routes one user turn into the session's agent loop and returns
// the step outcome. The session's exclusive handle is held for the duration
// of the step; under the FailFast policy a concurrent caller for the same
// session receives session.ErrSessionBusy.
func (r *Runner) SubmitTurn(ctx context.Context, sessionID, text string) (agent.StepOutcome, error) {
	h, err := r.manager.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("submit turn: %w", err)
	}
	defer r.manager.Release(h)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.track(sessionID, cancel)
	defer r.untrack(sessionID)

	return r.loop.Step(ctx, h, text)
}

// ResumeTool feeds the result of a long-running tool invocation back into the
// session and continues the agent loop.
func (r *Runner) ResumeTool(ctx context.Context, sessionID, callID string, result any, invokeErr error) (agent.StepOutcome, error) {
	h, err := r.manager.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resume tool: %w", err)
	}
	defer r.manager.Release(h)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.track(sessionID, cancel)
	defer r.untrack(sessionID)

	return r.loop.Resume(ctx, h, callID, result, invokeErr)
}

// Cancel aborts the session's in-flight step, if any. The loop still pairs
// any appended ToolCall with a cancelled result before releasing the handle.
func (r *Runner) Cancel(sessionID string) error {
	r.mu.Lock()
	cancel, exists := r.active[sessionID]
	r.mu.Unlock()
	if !exists {
		return fmt.Errorf("no in-flight step for session %s", sessionID)
	}
	cancel()
	return nil
}

// History returns the session's durable transcript.
func (r *Runner) History(sessionID string) ([]core.Turn, error) {
	return r.transcripts.ReadAll(sessionID)
}

// ExecutionRecords returns the session's durable tool invocation trace.
func (r *Runner) ExecutionRecords(sessionID string) ([]store.Record, error) {
	return r.execLog.ReadAll(sessionID)
}

// StartSweeper launches the idle-session sweeper in a background goroutine
// per the given configuration. A zero idle expiry disables it.
func (r *Runner) StartSweeper(ctx context.Context, cfg config.SessionConfig) {
	if cfg.IdleExpiry <= 0 {
		return
	}
	go r.manager.Sweep(ctx, cfg.SweepInterval, cfg.IdleExpiry)
}

func (r *Runner) track(sessionID string, cancel context.CancelFunc) {
	r.mu.Lock()
	r.active[sessionID] = cancel
	r.mu.Unlock()
}

func (r *Runner) untrack(sessionID string) {
	r.mu.Lock()
	delete(r.active, sessionID)
	r.mu.Unlock()
}
