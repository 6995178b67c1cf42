package tool

import "github.com/hupe1980/agentloop/core"

// Kind categorizes how the function executor invokes a registered tool. The
// kind is resolved once at registration time from the tool's capabilities and
// the invocation path switches on it; tools cannot change kind afterwards.
type Kind string

const (
	// KindFunction is a plain request/response tool.
	KindFunction Kind = "function"
	// KindStreaming is a tool that emits incremental chunks while running.
	KindStreaming Kind = "streaming"
	// KindLongRunning is a tool whose work completes out of band. Its call ID
	// is surfaced on the emitted event via LongRunningToolIDs.
	KindLongRunning Kind = "long_running"
)

// Streamer is implemented by tools that emit incremental chunks while
// running. The emit callback delivers intermediate payloads; the returned
// value is the final result recorded in the function response.
type Streamer interface {
	Stream(toolCtx *core.ToolContext, args map[string]any, emit func(chunk any) error) (any, error)
}

// LongRunner marks tools whose result arrives asynchronously after the turn.
type LongRunner interface{ LongRunning() bool }

// OutputSetter marks tools whose result becomes the final model response for
// the turn. The executor short-circuits the remaining model round-trip and
// synthesizes a final event from the tool result.
type OutputSetter interface{ SetsModelOutput() bool }

// KindOf resolves the invocation kind for a tool from its capabilities.
func KindOf(t Tool) Kind {
	if _, ok := t.(Streamer); ok {
		return KindStreaming
	}

	if lr, ok := t.(LongRunner); ok && lr.LongRunning() {
		return KindLongRunning
	}

	return KindFunction
}
