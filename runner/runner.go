package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentloop/artifact"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/memory"
	"github.com/hupe1980/agentloop/plugin"
	"github.com/hupe1980/agentloop/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run. Zero disables
	// the limit.
	MaxModelCalls int
	// Plugins is the process-wide plugin chain. The runner seals it when the
	// first run starts.
	Plugins *plugin.Manager
	// Session management services.
	SessionStore core.SessionStore
	// Artifact management services.
	ArtifactStore core.ArtifactStore
	// Memory management services.
	MemoryStore core.MemoryStore
	// Credential resolution for tools.
	CredentialStore core.CredentialStore
	// Logging services.
	Logger logging.Logger
}

// pluginAware is implemented by agents that accept the process-wide plugin
// chain. The runner walks the agent tree and installs the manager on every
// agent that wants it.
type pluginAware interface {
	SetPluginManager(m *plugin.Manager)
}

// Runner coordinates agent execution: resolves which agent continues the
// conversation, creates run contexts, streams events, applies side effects,
// and persists history. Public methods are safe for concurrent use.
type Runner struct {
	agent core.Agent

	eventBufferSize int
	maxModelCalls   int

	plugins         *plugin.Manager
	sessionStore    core.SessionStore
	artifactStore   core.ArtifactStore
	memoryStore     core.MemoryStore
	credentialStore core.CredentialStore
	logger          logging.Logger

	sealOnce   sync.Once
	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner around a root agent with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
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

	return &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		plugins:         opts.Plugins,
		sessionStore:    opts.SessionStore,
		artifactStore:   opts.ArtifactStore,
		memoryStore:     opts.MemoryStore,
		credentialStore: opts.CredentialStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Plugins exposes the plugin manager for registration before the first run.
func (r *Runner) Plugins() *plugin.Manager { return r.plugins }

// Run starts an asynchronous invocation. The user content is persisted to the
// session, the continuing agent is resolved from the event log, and events
// stream on the returned channel until the turn completes.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	r.sealOnce.Do(r.sealPlugins)

	runID := core.NewID()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	agentToRun := r.findAgentToRun(sess)

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		core.AgentInfo{Name: agentToRun.Name(), Type: string(agentToRun.Kind())},
		userContent,
		r.maxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.artifactStore,
		r.memoryStore,
		r.logger,
	)
	runCtx.CredentialStore = r.credentialStore

	go func() {
		defer func() {
			close(agentEmit)
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
		}()

		if err := r.runAgent(runCtx, agentToRun); err != nil {
			select {
			case <-runCtx.Done():
				return
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()

		r.processEvents(runCtx, sessionID, agentEmit, resumeCh, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// Cancel cancels a running invocation by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// sealPlugins installs the plugin chain on every agent in the tree that wants
// it, then closes the registration window.
func (r *Runner) sealPlugins() {
	r.walkAgents(r.agent, func(a core.Agent) {
		if pa, ok := a.(pluginAware); ok {
			pa.SetPluginManager(r.plugins)
		}
	})

	r.plugins.Seal()

	r.logger.Debug("runner.plugins.sealed", "count", r.plugins.Len())
}

func (r *Runner) walkAgents(a core.Agent, fn func(core.Agent)) {
	if a == nil {
		return
	}

	fn(a)

	for _, sub := range a.SubAgents() {
		r.walkAgents(sub, fn)
	}
}

// findAgentToRun decides which agent continues the conversation:
//  1. When the log ends in a user function response, the agent that issued
//     the matching call resumes so it can finish its pending tool round-trip.
//  2. Otherwise the most recent known agent author resumes, provided control
//     may rest there.
//  3. Agents that cannot receive control (workflow agents, transfer opt-outs)
//     yield to the root agent.
//  4. A fresh conversation starts at the root agent.
func (r *Runner) findAgentToRun(sess *core.Session) core.Agent {
	events := sess.GetEvents()

	if match := core.FindMatchingFunctionCall(events); match != nil {
		if a := r.findByName(match.Author); a != nil {
			r.logger.Debug("runner.resolve.function_response", "agent", a.Name())
			return a
		}
	}

	for i := len(events) - 1; i >= 0; i-- {
		author := events[i].Author
		if author == "" || author == core.UserAuthor {
			continue
		}

		a := r.findByName(author)
		if a == nil {
			// Authors from other runners or renamed agents are skipped.
			r.logger.Debug("runner.resolve.unknown_author", "author", author)
			continue
		}

		if core.IsTransferable(a) {
			r.logger.Debug("runner.resolve.continue", "agent", a.Name())
			return a
		}

		r.logger.Debug("runner.resolve.root_fallback", "author", author)
		return r.agent
	}

	return r.agent
}

func (r *Runner) findByName(name string) core.Agent {
	if name == "" {
		return nil
	}

	if r.agent.Name() == name {
		return r.agent
	}

	return r.agent.FindAgent(name)
}

func (r *Runner) runAgent(runCtx *core.RunContext, agentToRun core.Agent) error {
	if err := agentToRun.Start(runCtx); err != nil {
		return err
	}

	defer func() {
		if err := agentToRun.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop.failed", "agent", agentToRun.Name(), "error", err.Error())
		}
	}()

	return agentToRun.Run(runCtx)
}

// processEvents consumes the agent's emit channel, applies side effects,
// persists non-partial events and relays them to the caller. Each persisted
// event is acknowledged with a resume signal so the agent can proceed.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}

			if !ev.IsPartial() {
				if err := r.applyEventActions(sessionID, ev); err != nil {
					select {
					case <-runCtx.Done():
						return
					case errorsCh <- fmt.Errorf("failed to process event actions: %w", err):
					}
					return
				}

				if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
					select {
					case <-runCtx.Done():
						return
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
			}

			select {
			case <-runCtx.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			}

			// Every persisted event gets exactly one resume token. The send
			// must block: parallel branches share this channel, and a dropped
			// token leaves a branch waiting forever.
			if !ev.IsPartial() {
				select {
				case <-runCtx.Done():
					return
				case resumeCh <- struct{}{}:
				}
			}
		}
	}
}

// applyEventActions commits event side effects before the event is appended
// to the log, so readers never observe an event whose deltas are missing.
func (r *Runner) applyEventActions(sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if target := ev.Actions.TransferToAgent; target != nil && *target != "" {
		r.logger.Debug("runner.event.transfer_to_agent", "target", *target, "session_id", sessionID)
	}

	if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
		r.logger.Debug("runner.event.escalate", "session_id", sessionID)
	}

	if len(ev.Actions.RequestedAuthConfigs) > 0 {
		r.logger.Info("runner.event.auth_requested", "session_id", sessionID, "count", len(ev.Actions.RequestedAuthConfigs))
	}

	return nil
}
