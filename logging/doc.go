// Package logging provides a minimal logging interface and adapters for gpagent.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the agent loop, session manager and stores use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(logging.LevelInfo, "json", os.Stdout)
//	r := runner.New(decider, registry, func(o *runner.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal so callers can plug in
// any structured logger.
package logging
