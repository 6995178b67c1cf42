// Package runner implements the orchestration layer for AgentLoop.
//
// The Runner is the coordination hub between callers and agent trees. Per
// invocation it persists the user input, resolves which agent continues the
// conversation from the session's event log, drives the agent's lifecycle,
// and consumes emitted events: side effects (state deltas) are applied and
// non-partial events appended to the session before each event is relayed to
// the caller and acknowledged back to the agent.
//
// # Responsibilities (abridged)
//   - Continuation resolution (pending tool round-trips, last-agent affinity,
//     transferability fallback to the root agent)
//   - Event processing & side-effect application
//   - Session history persistence
//   - Plugin chain installation and sealing
//   - Invocation lifecycle management & cancellation
//
// See runner.go for the operational implementation details.
package runner
