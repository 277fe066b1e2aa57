package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local Store used by tests and the dev server.
// TTLs are honored lazily on read.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]memEntry
	zsets  map[string]map[string]float64
	now    func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]memEntry{},
		zsets:  map[string]map[string]float64{},
		now:    time.Now,
	}
}

// SetClock overrides the clock, for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) expired(e memEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	if !ok || s.expired(e) {
		delete(s.values, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = s.entry(value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.values[key]; ok && !s.expired(e) {
		return false, nil
	}
	s.values[key] = s.entry(value, ttl)
	return true, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.values[key]; ok && !s.expired(e) {
		e.expiresAt = s.now().Add(ttl)
		s.values[key] = e
	}
	if _, ok := s.zsets[key]; ok {
		// zset expiry is tracked via a shadow value entry
		s.values["zttl:"+key] = s.entry("1", ttl)
	}
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	if ok && !s.expired(e) {
		return true, nil
	}
	_, zok := s.zsets[key]
	return zok, nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.zsets, key)
	return nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zs, ok := s.zsets[key]
	if !ok {
		zs = map[string]float64{}
		s.zsets[key] = zs
	}
	zs[member] = score
	return nil
}

func (s *MemoryStore) ZRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zs, ok := s.zsets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(zs))
	for m := range zs {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if zs[members[i]] == zs[members[j]] {
			return members[i] < members[j]
		}
		return zs[members[i]] < zs[members[j]]
	})
	return members, nil
}

func (s *MemoryStore) entry(value string, ttl time.Duration) memEntry {
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}
