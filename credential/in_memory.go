// Package credential contains concrete implementations of core.CredentialStore.
//
// Tools resolve secrets through the store; when a key is unknown they stage a
// requested auth config on their event actions instead of failing, and the
// caller supplies the credential before the next run.
package credential

import (
	"fmt"
	"maps"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemoryStore is a process-local CredentialStore. Secrets are copied on
// save and load so callers cannot mutate stored state. Suitable for tests and
// single-process deployments; production setups should back this with a
// secret manager.
type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[string]core.Credential
}

// NewInMemoryStore constructs an empty in-memory credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]core.Credential)}
}

// Load returns the credential for key, or nil without error when the key is
// unknown.
func (s *InMemoryStore) Load(key string) (*core.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[key]
	if !ok {
		return nil, nil
	}

	cp := cred
	if cred.Extra != nil {
		cp.Extra = make(map[string]any, len(cred.Extra))
		maps.Copy(cp.Extra, cred.Extra)
	}

	return &cp, nil
}

// Save stores a credential under its key, replacing any previous value.
func (s *InMemoryStore) Save(cred *core.Credential) error {
	if cred == nil {
		return fmt.Errorf("credential must not be nil")
	}
	if cred.Key == "" {
		return fmt.Errorf("credential key must not be empty")
	}

	cp := *cred
	if cred.Extra != nil {
		cp.Extra = make(map[string]any, len(cred.Extra))
		maps.Copy(cp.Extra, cred.Extra)
	}

	s.mu.Lock()
	s.creds[cred.Key] = cp
	s.mu.Unlock()

	return nil
}

var _ core.CredentialStore = (*InMemoryStore)(nil)
