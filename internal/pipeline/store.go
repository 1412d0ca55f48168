package pipeline

import (
	"errors"
	"sync"

	"github.com/augurhq/augur/internal/report"
)

// ErrRunNotFound reports a lookup for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// State is the externally visible status of a run.
type State struct {
	ID             string        `json:"id"`
	ChangeURL      string        `json:"change_url"`
	RepoURL        string        `json:"repo_url,omitempty"`
	Status         report.Status `json:"status"`
	Progress       int           `json:"progress"`
	CurrentStep    string        `json:"current_step,omitempty"`
	StepsCompleted []string      `json:"steps_completed,omitempty"`
	Error          string        `json:"error,omitempty"`
	Result         *report.Run   `json:"result,omitempty"`
}

// Store tracks run states.
type Store interface {
	Put(state State)
	Get(id string) (State, error)
	List() []State
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]State
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]State)}
}

// Put stores or replaces a run state.
func (s *MemoryStore) Put(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[state.ID] = state
}

// Get returns the state for a run ID.
func (s *MemoryStore) Get(id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok {
		return State{}, ErrRunNotFound
	}
	return state, nil
}

// List returns all known run states.
func (s *MemoryStore) List() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]State, 0, len(s.runs))
	for _, state := range s.runs {
		states = append(states, state)
	}
	return states
}
