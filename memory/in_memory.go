package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// entry is one recorded memory for a session.
type entry struct {
	id       string
	content  string
	metadata map[string]any
}

// InMemoryStore keeps per-session memory in process. Two surfaces back the
// core.MemoryStore contract: a key/value map merged via Put and read via Get,
// and an ordered list of recorded memories served by Store, Search and Delete.
//
// Search tokenizes the query and scores each entry by the fraction of query
// terms its content contains, case insensitive. Entries scoring zero are
// dropped. Good enough for tests and demos; production retrieval wants a real
// index behind the same interface.
type InMemoryStore struct {
	mu     sync.RWMutex
	kv     map[string]map[string]any
	log    map[string][]entry
	nextID int
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		kv:  make(map[string]map[string]any),
		log: make(map[string][]entry),
	}
}

// Get returns a copy of the session's key/value memory.
func (s *InMemoryStore) Get(sessionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.kv[sessionID]))
	for k, v := range s.kv[sessionID] {
		out[k] = v
	}

	return out, nil
}

// Put merges delta into the session's key/value memory.
func (s *InMemoryStore) Put(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kv[sessionID] == nil {
		s.kv[sessionID] = make(map[string]any, len(delta))
	}

	for k, v := range delta {
		s.kv[sessionID][k] = v
	}

	return nil
}

// Store records a new memory for the session. IDs are assigned from a
// store-wide counter, so they stay unique across sessions.
func (s *InMemoryStore) Store(sessionID string, content string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++

	md := make(map[string]any, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	s.log[sessionID] = append(s.log[sessionID], entry{
		id:       fmt.Sprintf("mem_%d", s.nextID),
		content:  content,
		metadata: md,
	})

	return nil
}

// Search ranks the session's recorded memories against the query. An empty
// query matches everything with a neutral score. Results are ordered by score,
// keeping insertion order between equals, and capped at limit.
func (s *InMemoryStore) Search(sessionID string, query string, limit int) ([]core.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))

	results := make([]core.SearchResult, 0, len(s.log[sessionID]))

	for _, e := range s.log[sessionID] {
		score := scoreContent(e.content, terms)
		if score == 0 {
			continue
		}

		md := make(map[string]any, len(e.metadata))
		for k, v := range e.metadata {
			md[k] = v
		}

		results = append(results, core.SearchResult{
			ID:       e.id,
			Content:  e.content,
			Score:    score,
			Metadata: md,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// scoreContent returns the fraction of query terms found in the content.
// No terms means an unfiltered listing, scored 1.
func scoreContent(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}

	lc := strings.ToLower(content)

	hits := 0
	for _, term := range terms {
		if strings.Contains(lc, term) {
			hits++
		}
	}

	return float64(hits) / float64(len(terms))
}

// Delete removes a recorded memory by id.
func (s *InMemoryStore) Delete(sessionID string, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.log[sessionID]
	for i, e := range entries {
		if e.id == memoryID {
			s.log[sessionID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("memory %s not found in session %s", memoryID, sessionID)
}
