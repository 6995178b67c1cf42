package core

import (
	"context"
	"fmt"
)

type testLogger struct{}

func (l testLogger) Debug(string, ...any) {}
func (l testLogger) Info(string, ...any)  {}
func (l testLogger) Warn(string, ...any)  {}
func (l testLogger) Error(string, ...any) {}

type mockSessionStore struct {
	sessions map[string]*Session
	applied  map[string]map[string]any
}

func (s *mockSessionStore) Get(id string) (*Session, error) {
	if s.sessions == nil {
		s.sessions = map[string]*Session{}
	}
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := NewSession(id)
	s.sessions[id] = sess
	return sess, nil
}

func (s *mockSessionStore) Create(id string) (*Session, error) { return s.Get(id) }

func (s *mockSessionStore) AppendEvent(id string, ev Event) error {
	if sess, ok := s.sessions[id]; ok {
		sess.AddEvent(ev)
	}
	return nil
}

func (s *mockSessionStore) ApplyDelta(id string, delta map[string]any) error {
	if s.applied == nil {
		s.applied = map[string]map[string]any{}
	}
	cp := map[string]any{}
	for k, v := range delta {
		cp[k] = v
	}
	s.applied[id] = cp
	if sess, ok := s.sessions[id]; ok {
		sess.ApplyStateDelta(delta)
	}
	return nil
}

type mockArtifactStore struct {
	saved map[string]map[string][][]byte
}

func (a *mockArtifactStore) Save(sid, name string, data []byte) (int, error) {
	if a.saved == nil {
		a.saved = map[string]map[string][][]byte{}
	}
	if _, ok := a.saved[sid]; !ok {
		a.saved[sid] = map[string][][]byte{}
	}
	a.saved[sid][name] = append(a.saved[sid][name], append([]byte{}, data...))
	return len(a.saved[sid][name]), nil
}

func (a *mockArtifactStore) Get(sid, name string, version int) ([]byte, error) {
	versions := a.saved[sid][name]
	if len(versions) == 0 {
		return nil, fmt.Errorf("artifact %s not found", name)
	}
	if version < 0 {
		return versions[len(versions)-1], nil
	}
	if version < 1 || version > len(versions) {
		return nil, fmt.Errorf("artifact %s has no version %d", name, version)
	}
	return versions[version-1], nil
}

func (a *mockArtifactStore) List(sid string) ([]string, error) {
	res := []string{}
	for k := range a.saved[sid] {
		res = append(res, k)
	}
	return res, nil
}

func (a *mockArtifactStore) Versions(sid, name string) ([]int, error) {
	res := []int{}
	for i := range a.saved[sid][name] {
		res = append(res, i+1)
	}
	return res, nil
}

func (a *mockArtifactStore) Delete(sid, name string) error {
	if m, ok := a.saved[sid]; ok {
		delete(m, name)
	}
	return nil
}

type mockMemoryStore struct{}

func (m *mockMemoryStore) Get(sessionID string) (map[string]any, error) {
	return map[string]any{}, nil
}
func (m *mockMemoryStore) Put(sessionID string, delta map[string]any) error { return nil }
func (m *mockMemoryStore) Search(sid, q string, limit int) ([]SearchResult, error) {
	return []SearchResult{{ID: "m1", Content: "remembered", Score: 0.9}}, nil
}
func (m *mockMemoryStore) Store(sid, content string, metadata map[string]any) error { return nil }
func (m *mockMemoryStore) Delete(sid, memoryID string) error                        { return nil }

func newRunContextForTest() (*RunContext, chan Event) {
	emit := make(chan Event, 5)
	resume := make(chan struct{}, 5)
	sStore := &mockSessionStore{}
	sess, _ := sStore.Create("sess-x")
	aStore := &mockArtifactStore{}
	mStore := &mockMemoryStore{}
	rc := NewRunContext(
		context.Background(), "sess-x", "run-x",
		AgentInfo{Name: "Agent1", Type: "test"},
		Content{}, 0, emit, resume, sess, sStore, aStore, mStore, testLogger{},
	)
	return rc, emit
}
