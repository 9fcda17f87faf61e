// Package runner is the boundary-facing entry point of gpagent.
//
// The Runner wires the agent loop, session manager, tool registry and the two
// durable stores into a single surface the transport layer calls into. It
// owns handle acquisition and release around every step, tracks in-flight
// steps so a disconnecting caller can cancel them, and optionally runs the
// idle-session sweeper. Public methods are safe for concurrent use.
package runner
