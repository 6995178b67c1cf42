// Package agentloop provides a high-level façade over the runner and
// service abstractions (sessions, artifacts, memory, credentials & logging)
// enabling rapid construction of multi‑agent reasoning systems. Most
// applications interact with this package by:
//  1. Creating an AgentLoop via New() around a root agent (optionally
//     overriding default in‑memory services)
//  2. Registering plugins before the first run
//  3. Running turns asynchronously (Run) or synchronously (RunSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. The runner resolves which agent continues a
// conversation from the session's event log, so callers address sessions, not
// agents. All defaults are safe for local development and testing; production
// deployments typically supply durable store implementations and a structured
// logger.
package agentloop

import (
	"context"

	"github.com/hupe1980/agentloop/artifact"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/memory"
	"github.com/hupe1980/agentloop/plugin"
	"github.com/hupe1980/agentloop/runner"
	"github.com/hupe1980/agentloop/session"
)

// Options configures the AgentLoop instance.
type Options struct {
	// EventBufferSize sets the channel buffer size for event processing.
	// Larger buffers reduce blocking but increase memory usage.
	EventBufferSize int

	// MaxModelCalls bounds model calls per run. Zero disables the limit.
	MaxModelCalls int

	// Plugins is the process-wide plugin chain. When nil a fresh manager is
	// created; it can be populated via Plugins() until the first run seals it.
	Plugins *plugin.Manager

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore    core.SessionStore
	ArtifactStore   core.ArtifactStore
	MemoryStore     core.MemoryStore
	CredentialStore core.CredentialStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentLoop is the high-level façade aggregating the runner and its services.
type AgentLoop struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new AgentLoop around a root agent with optional overrides.
// Any unset service is initialized with an in-memory implementation.
func New(rootAgent core.Agent, optFns ...func(o *Options)) *AgentLoop {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		Plugins:         plugin.NewManager(),
		SessionStore:    session.NewInMemoryStore(),
		ArtifactStore:   artifact.NewInMemoryStore(),
		MemoryStore:     memory.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(rootAgent, func(o *runner.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.Plugins = opts.Plugins
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.MemoryStore = opts.MemoryStore
		o.CredentialStore = opts.CredentialStore
		o.Logger = opts.Logger
	})

	return &AgentLoop{opts: opts, runner: r}
}

// Plugins exposes the plugin manager for registration before the first run.
func (l *AgentLoop) Plugins() *plugin.Manager { return l.runner.Plugins() }

// Run starts an asynchronous turn returning event & error channels. The
// continuing agent is resolved from the session's event log.
func (l *AgentLoop) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return l.runner.Run(ctx, sessionID, userContent)
}

// Cancel aborts a running turn by its run ID.
func (l *AgentLoop) Cancel(runID string) error { return l.runner.Cancel(runID) }

// RunSync is a synchronous helper that drains the async channels, accumulates
// events and returns the run ID.
func (l *AgentLoop) RunSync(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := l.runner.Run(ctx, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			// Context cancelled - return events collected so far
			return runID, events, ctx.Err()

		case event, ok := <-eventsCh:
			if !ok {
				// Events channel closed - check for terminal error
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, event)

		case err := <-errorsCh:
			if err != nil {
				return runID, events, err
			}
		}
	}
}
