// Package model defines the decision-function boundary of the agent loop:
// given the ordered turn history and the advertised tool definitions, a
// Decider chooses the next action: answer with text or call a tool. Concrete
// backends live in the subpackages model/openai and model/anthropic; tests
// and examples use the scripted MockDecider.
package model
