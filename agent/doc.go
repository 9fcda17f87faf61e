// Package agent implements the core agent loop: given a session's exclusive
// handle and a new user turn, it repeatedly asks the decision function for
// the next action (answer or call a tool), executing tools through the
// registry and persisting every turn, call and result before exposing it as
// session state. The loop is bounded by a configured maximum number of tool
// rounds per incoming user turn and degrades gracefully to a truncation
// answer instead of looping indefinitely.
package agent
