package llmcall

import (
	"sync"
	"time"
)

// DefaultCapacity bounds how many calls a Store keeps.
const DefaultCapacity = 1000

// Store keeps the most recent LLM call records in memory.
type Store struct {
	mu       sync.RWMutex
	calls    []Call
	capacity int
}

// NewStore creates a store holding at most capacity calls (DefaultCapacity
// when capacity <= 0). Oldest calls are dropped first.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity}
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	SessionID string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Add stores a call.
func (s *Store) Add(call *Call) {
	if call == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, *call)
	if over := len(s.calls) - s.capacity; over > 0 {
		s.calls = append([]Call(nil), s.calls[over:]...)
	}
}

// Get retrieves a single LLM call by ID. Returns nil when not found.
func (s *Store) Get(id string) *Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.calls {
		if s.calls[i].ID == id {
			c := s.calls[i]
			return &c
		}
	}
	return nil
}

// List returns calls matching the filter, newest first.
func (s *Store) List(filter QueryFilter) []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Call
	for i := len(s.calls) - 1; i >= 0; i-- {
		if filter.matches(&s.calls[i]) {
			matched = append(matched, s.calls[i])
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []Call{}
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	if matched == nil {
		matched = []Call{}
	}
	return matched
}

// CountByPromptKey returns call counts grouped by prompt key.
func (s *Store) CountByPromptKey(sessionID string) map[string]int {
	counts := make(map[string]int)
	for _, c := range s.List(QueryFilter{SessionID: sessionID}) {
		counts[c.PromptKey]++
	}
	return counts
}

// Len returns the number of stored calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}

func (f QueryFilter) matches(c *Call) bool {
	if f.SessionID != "" && c.SessionID != f.SessionID {
		return false
	}
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
