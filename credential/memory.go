package credential

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]Record)}
}

func (s *MemoryStore) Lookup(_ context.Context, username string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[NormalizeUsername(username)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	key := NormalizeUsername(rec.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; ok {
		return ErrAlreadyExists
	}
	s.users[key] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, username string) error {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; !ok {
		return ErrNotFound
	}
	delete(s.users, key)
	return nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, username, hash string) error {
	key := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[key]
	if !ok {
		return ErrNotFound
	}
	rec.PasswordHash = hash
	s.users[key] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, copyRecord(rec))
	}
	s.mu.RUnlock()

	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func copyRecord(rec Record) Record {
	rec.Authorities = append([]string(nil), rec.Authorities...)
	return rec
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return NormalizeUsername(recs[i].Username) < NormalizeUsername(recs[j].Username)
	})
}
