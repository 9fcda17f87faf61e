// Package core defines the domain records shared by every layer of gpagent:
// conversation turns, tool call/result pairs, and the session container that
// orders them. All records are immutable once appended; the only mutable
// aggregate is Session, which is mutated exclusively by the agent loop while
// the session's handle is held.
package core
