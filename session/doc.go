// Package session owns session lifecycle: resolve-or-create, exclusive
// per-session handles, lazy rehydration from the transcript store after a
// restart, and idle expiry of the in-memory table.
//
// The Manager guarantees at most one concurrent mutator per session. A second
// caller for the same session either fails fast with ErrSessionBusy or blocks
// until the handle is released, depending on the configured policy. Holding a
// handle never blocks callers working on other sessions.
package session
