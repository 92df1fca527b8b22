package memory

import (
	"context"
	"sync"
	"time"

	"catalog-workers/internal/common/metrics"
)

type entry struct {
	rec     Record
	expires time.Time
}

// InMemoryStore backs local runs without Redis and the tests of memo consumers.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{entries: map[string]entry{}, ttl: ttl, now: time.Now}
}

func (s *InMemoryStore) lookup(key string) (*Record, bool) {
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		return nil, false
	}
	rec := e.rec
	return &rec, true
}

func (s *InMemoryStore) Get(_ context.Context, identifier string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lookup(Key(identifier))
	if !ok {
		metrics.MemoLookups.WithLabelValues("miss").Inc()
		return nil, ErrNotFound
	}
	metrics.MemoLookups.WithLabelValues("hit").Inc()
	return rec, nil
}

func (s *InMemoryStore) Put(_ context.Context, rec *Record, overwrite bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Key(rec.Identifier)
	existing, found := s.lookup(key)
	if found && !overwrite {
		return false, nil
	}
	now := s.now()
	s.entries[key] = entry{rec: *prepare(rec, existing, now), expires: now.Add(s.ttl)}
	return true, nil
}

func (s *InMemoryStore) Delete(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Key(identifier)
	_, found := s.lookup(key)
	delete(s.entries, key)
	return found, nil
}

func (s *InMemoryStore) Clear(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = map[string]entry{}
	return n, nil
}

func (s *InMemoryStore) Stats(context.Context) (*Stats, error) {
	return computeStats(s.snapshot(), "memory"), nil
}

func (s *InMemoryStore) List(_ context.Context, opts ListOptions) (*Page, error) {
	return paginate(s.snapshot(), opts, "memory"), nil
}

func (s *InMemoryStore) Validate(_ context.Context, identifier string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := Key(identifier)
	rec, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	now := s.now()
	markValidated(rec, now)
	s.entries[key] = entry{rec: *rec, expires: now.Add(s.ttl)}
	return true, nil
}

func (s *InMemoryStore) snapshot() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.entries))
	for key := range s.entries {
		if rec, ok := s.lookup(key); ok {
			out = append(out, rec)
		}
	}
	return out
}
