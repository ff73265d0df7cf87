package conversation

import (
	"errors"
	"sync"
)

// ErrEmptyContent is returned by Append for a turn with no content. Handlers
// validate before appending, so hitting this indicates a caller bug.
var ErrEmptyContent = errors.New("turn content must not be empty")

// Store maps client ids to conversation logs. Logs are created lazily on
// first reference and live for the lifetime of the process.
//
// All operations on one client's log are serialized behind a per-log mutex,
// so turns land in request-arrival order relative to that client's other
// requests, and a Clear cannot interleave with an Append.
type Store struct {
	mu   sync.RWMutex
	logs map[string]*clientLog
}

type clientLog struct {
	mu    sync.Mutex
	turns []Turn
}

// NewStore creates an empty store. Construct one at process start and pass it
// to every handler; state is process memory only and is lost on restart.
func NewStore() *Store {
	return &Store{logs: map[string]*clientLog{}}
}

// getOrCreate returns the log for a client id, creating an empty one if
// absent. It never fails; an empty log is exactly "no turns yet".
func (s *Store) getOrCreate(clientID string) *clientLog {
	clientID = CanonicalClientID(clientID)

	s.mu.RLock()
	cl, ok := s.logs[clientID]
	s.mu.RUnlock()
	if ok {
		return cl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cl, ok = s.logs[clientID]; !ok {
		cl = &clientLog{}
		s.logs[clientID] = cl
	}
	return cl
}

// Append records a turn at the end of the client's log. Strictly additive:
// never trims, never deduplicates.
func (s *Store) Append(clientID string, role Role, content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.turns = append(cl.turns, Turn{Role: role, Content: content})
	return nil
}

// Clear replaces the client's log with an empty one.
func (s *Store) Clear(clientID string) {
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.turns = nil
}

// ResetWith atomically clears the client's log and appends a single turn.
// Used by the reset-on-upload policy so a racing chat request cannot slip
// between the clear and the document injection.
func (s *Store) ResetWith(clientID string, role Role, content string) error {
	if content == "" {
		return ErrEmptyContent
	}
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.turns = []Turn{{Role: role, Content: content}}
	return nil
}

// Len reports the number of turns in the client's log.
func (s *Store) Len(clientID string) int {
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.turns)
}

// Snapshot returns a copy of the client's full log.
func (s *Store) Snapshot(clientID string) []Turn {
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]Turn(nil), cl.turns...)
}

// Window returns a copy of the most recent maxTurns turns of the client's
// log, in original order. A pure read; repeated calls with no intervening
// append return the same result.
func (s *Store) Window(clientID string, maxTurns int) []Turn {
	cl := s.getOrCreate(clientID)
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return append([]Turn(nil), window(cl.turns, maxTurns)...)
}
