package artifact

import (
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemoryStore is an in-process versioned ArtifactStore useful for tests,
// examples and single-process prototypes. Every Save appends a new version;
// versions start at 1 and are never overwritten. Data is copied on save and
// retrieval to avoid accidental external mutation of internal buffers.
//
// Layout: sessionID -> name -> ordered version payloads
//
// This implementation is intentionally minimal; it does not enforce retention
// limits, size quotas, or eviction. For production, prefer a durable
// implementation that can scale and survive process restarts.
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][][]byte)}
}

// Save appends a new version of the named artifact and returns its version
// number. The input slice is copied before storage.
func (a *InMemoryStore) Save(sessionID, name string, data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.artifacts[sessionID]; !exists {
		a.artifacts[sessionID] = make(map[string][][]byte)
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	versions := append(a.artifacts[sessionID][name], cp)
	a.artifacts[sessionID][name] = versions

	return len(versions), nil
}

// Get returns a copy of the stored bytes at the given version, or the newest
// version when passed core.LatestVersion (any negative value). Returns
// ErrNotFound for unknown artifacts or out-of-range versions.
func (a *InMemoryStore) Get(sessionID, name string, version int) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions, ok := a.artifacts[sessionID][name]
	if !ok || len(versions) == 0 {
		return nil, ErrNotFound
	}

	if version < 0 {
		version = len(versions)
	}
	if version < 1 || version > len(versions) {
		return nil, ErrNotFound
	}

	data := versions[version-1]
	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

// List returns the artifact names stored for the session. The slice is a
// snapshot and safe for caller mutation.
func (a *InMemoryStore) List(sessionID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.artifacts[sessionID]
	if !ok {
		return []string{}, nil
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	return names, nil
}

// Versions returns the stored version numbers for the named artifact in
// ascending order.
func (a *InMemoryStore) Versions(sessionID, name string) ([]int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	versions, ok := a.artifacts[sessionID][name]
	if !ok || len(versions) == 0 {
		return nil, ErrNotFound
	}

	nums := make([]int, len(versions))
	for i := range versions {
		nums[i] = i + 1
	}

	return nums, nil
}

// Delete removes all versions of the named artifact or returns ErrNotFound.
func (a *InMemoryStore) Delete(sessionID, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.artifacts[sessionID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[name]; !ok {
		return ErrNotFound
	}

	delete(m, name)

	return nil
}

var _ core.ArtifactStore = (*InMemoryStore)(nil)
