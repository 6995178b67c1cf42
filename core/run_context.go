package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/agentloop/logging"
)

// RunContext carries execution state & helpers for an agent run.
// It encapsulates the mutable, per-invocation execution scope passed to an
// Agent's Run method. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, Agent info)
//   - Input user Content
//   - Emission / resumption coordination channels
//   - Backing services (session, artifact, memory, credential) for persistence concerns
//   - A working Session snapshot and pending StateDelta / Artifacts to commit
//   - Branch label for hierarchical flows
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them. Cloning produces an isolated
// delta/artifact buffer while keeping references to underlying services.
type RunContext struct {
	Context          context.Context
	SessionID, RunID string
	Agent            AgentInfo
	UserContent      Content
	MaxModelCalls    int
	Emit             chan<- Event
	Resume           <-chan struct{}
	SessionStore     SessionStore
	ArtifactStore    ArtifactStore
	MemoryStore      MemoryStore
	CredentialStore  CredentialStore
	Limiter          *ModelLimiter
	Session          *Session
	StateDelta       map[string]any
	Artifacts        map[string]int
	Branch           string

	*loggerAdapter
}

// NewRunContext constructs a RunContext with empty state and
// artifact deltas.
func NewRunContext(
	ctx context.Context,
	sessionID, runID string,
	agent AgentInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	resume <-chan struct{},
	sess *Session,
	sessionStore SessionStore,
	artifactStore ArtifactStore,
	memoryStore MemoryStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         runID,
		Agent:         agent,
		UserContent:   userContent,
		MaxModelCalls: maxModelCalls,
		Emit:          emit,
		Resume:        resume,
		Session:       sess,
		SessionStore:  sessionStore,
		ArtifactStore: artifactStore,
		MemoryStore:   memoryStore,
		Limiter:       NewModelLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		Artifacts:     map[string]int{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// AddArtifact stages an artifact name/version pair to be attached to the next
// emitted event.
func (rc *RunContext) AddArtifact(name string, version int) { rc.Artifacts[name] = version }

// SaveArtifact stores bytes as a new artifact version and stages the version
// bump for the next emitted event. Returns the new version number.
func (rc *RunContext) SaveArtifact(name string, data []byte) (int, error) {
	if rc.ArtifactStore == nil {
		return 0, fmt.Errorf("artifact store not configured")
	}

	version, err := rc.ArtifactStore.Save(rc.SessionID, name, data)
	if err != nil {
		return 0, err
	}

	rc.AddArtifact(name, version)

	return version, nil
}

// GetArtifact retrieves artifact bytes at a specific version. Pass
// LatestVersion for the most recent one.
func (rc *RunContext) GetArtifact(name string, version int) ([]byte, error) {
	if rc.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store not configured")
	}

	return rc.ArtifactStore.Get(rc.SessionID, name, version)
}

// ListArtifacts returns artifact names stored for the session.
func (rc *RunContext) ListArtifacts() ([]string, error) {
	if rc.ArtifactStore == nil {
		return []string{}, nil
	}

	return rc.ArtifactStore.List(rc.SessionID)
}

// SearchMemory queries the MemoryStore for relevant content.
func (rc *RunContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if rc.MemoryStore == nil {
		return []SearchResult{}, nil
	}

	return rc.MemoryStore.Search(rc.SessionID, q, limit)
}

// StoreMemory appends content plus metadata to the MemoryStore.
func (rc *RunContext) StoreMemory(content string, md map[string]any) error {
	if rc.MemoryStore == nil {
		return fmt.Errorf("memory store not configured")
	}
	return rc.MemoryStore.Store(rc.SessionID, content, md)
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.SessionID)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := rc.SessionStore.ApplyDelta(rc.SessionID, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetEvents()
}

// GetAgentName returns the logical agent name for this invocation.
func (rc *RunContext) GetAgentName() string { return rc.Agent.Name }

// GetAgentType returns a categorization label for the agent.
func (rc *RunContext) GetAgentType() string { return rc.Agent.Type }

// Clone returns a shallow copy with deep-copied delta & artifact buffers.
func (rc *RunContext) Clone() *RunContext {
	c := &RunContext{
		Context:         rc.Context,
		SessionID:       rc.SessionID,
		RunID:           rc.RunID,
		Agent:           rc.Agent,
		UserContent:     rc.UserContent,
		MaxModelCalls:   rc.MaxModelCalls,
		Emit:            rc.Emit,
		Resume:          rc.Resume,
		SessionStore:    rc.SessionStore,
		ArtifactStore:   rc.ArtifactStore,
		MemoryStore:     rc.MemoryStore,
		CredentialStore: rc.CredentialStore,
		Limiter:         rc.Limiter,
		Session:         rc.Session,
		StateDelta:      map[string]any{},
		Artifacts:       map[string]int{},
		Branch:          rc.Branch,
		loggerAdapter:   rc.loggerAdapter,
	}

	maps.Copy(c.StateDelta, rc.StateDelta)
	maps.Copy(c.Artifacts, rc.Artifacts)

	return c
}

// WithBranch clones the context and sets the Branch label.
func (rc *RunContext) WithBranch(b string) *RunContext {
	c := rc.Clone()
	c.Branch = b
	return c
}

// NewChildContext derives a context for a nested / child execution path.
func (rc *RunContext) NewChildContext(emit chan<- Event, resume <-chan struct{}, branch string) *RunContext {
	finalBranch := rc.Branch
	if branch != "" {
		finalBranch = branch
	}

	return &RunContext{
		Context:         rc.Context,
		SessionID:       rc.SessionID,
		RunID:           rc.RunID,
		Agent:           rc.Agent,
		UserContent:     rc.UserContent,
		MaxModelCalls:   rc.MaxModelCalls,
		Emit:            emit,
		Resume:          resume,
		SessionStore:    rc.SessionStore,
		ArtifactStore:   rc.ArtifactStore,
		MemoryStore:     rc.MemoryStore,
		CredentialStore: rc.CredentialStore,
		Limiter:         rc.Limiter,
		Session:         rc.Session,
		StateDelta:      map[string]any{}, // fresh buffers
		Artifacts:       map[string]int{},
		Branch:          finalBranch,
		loggerAdapter:   rc.loggerAdapter,
	}
}

// EmitEvent merges pending StateDelta / Artifacts into the event and emits it.
// The branch label is stamped onto the event when the context carries one.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	if len(rc.Artifacts) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		maps.Copy(ev.Actions.ArtifactDelta, rc.Artifacts)
	}

	if rc.Branch != "" && ev.Branch == nil {
		b := rc.Branch
		ev.Branch = &b
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}
	rc.Artifacts = map[string]int{}

	return nil
}

// WaitForResume blocks until Resume signals or context cancellation.
func (rc *RunContext) WaitForResume() error {
	if rc.Resume == nil {
		return nil
	}

	select {
	case <-rc.Resume:
		return nil
	case <-rc.Context.Done():
		return rc.Context.Err()
	}
}
