// Package session holds parsed financial records for the lifetime of a
// browser session. Nothing is persisted beyond it: a new upload
// replaces the previous series and expired sessions are evicted by a
// background janitor.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"saaspulse/pkg/contracts/domain"
)

// DataKey is the fixed key the validated record sequence is stored
// under inside a session. It is the hand-off point to the display layer.
const DataKey = "financialData"

// ErrNoData is returned when a session has no stored record sequence.
var ErrNoData = errors.New("no financial data stored for session")

// entry is one session's stored state.
type entry struct {
	data      map[string][]domain.FinancialPeriodRecord
	expiresAt time.Time
}

// Store is a session-scoped in-memory key-value store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "session_store")),
		stop:     make(chan struct{}),
	}
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// PutRecords stores a validated record sequence under DataKey,
// replacing whatever the session held before and refreshing its TTL.
func (s *Store) PutRecords(sessionID string, records []domain.FinancialPeriodRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = &entry{
		data:      map[string][]domain.FinancialPeriodRecord{DataKey: records},
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Records returns the session's stored sequence, refreshing its TTL.
func (s *Store) Records(sessionID string) ([]domain.FinancialPeriodRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.sessions, sessionID)
		return nil, ErrNoData
	}
	e.expiresAt = time.Now().Add(s.ttl)
	return e.data[DataKey], nil
}

// Delete drops a session's data.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor evicts expired sessions every interval until Stop is
// called. It blocks and is meant to run in its own goroutine.
func (s *Store) StartJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the janitor. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	evicted := 0
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
			evicted++
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("expired sessions evicted",
			slog.Int("evicted", evicted),
			slog.Int("remaining", remaining))
	}
}
