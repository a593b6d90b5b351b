// Package memory is a process-local SessionRepository. Sessions vanish on
// restart; it backs tests and SESSION_BACKEND=memory for local hacking.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/repository"
)

var _ repository.SessionRepository = (*Store)(nil)

type entry struct {
	data      []byte // encoded record, so callers never share memory with the store
	expiresAt time.Time
}

// Store is a thread-safe map of session id → encoded record.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates an empty store whose sessions live ttl after their last save.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) Load(_ context.Context, id string) (*model.UserRecord, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(e.expiresAt) {
		return nil, apperror.NotFound("session", id)
	}

	var rec model.UserRecord
	if err := sonic.Unmarshal(e.data, &rec); err != nil {
		return nil, fmt.Errorf("memory: decoding session %s: %w", id, err)
	}
	rec.Normalize()
	return &rec, nil
}

func (s *Store) Save(_ context.Context, id string, rec *model.UserRecord) error {
	if rec == nil {
		return fmt.Errorf("memory: saving session %s: nil record", id)
	}
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("memory: encoding session %s: %w", id, err)
	}

	s.mu.Lock()
	s.entries[id] = entry{data: data, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many sessions are held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
