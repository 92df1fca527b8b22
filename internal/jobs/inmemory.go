package jobs

import (
	"context"
	"sync"

	"catalog-workers/internal/common/errors"
)

// InMemoryStore serves local runs. Statuses are copied on the way in and out.
type InMemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{statuses: map[string]Status{}}
}

func (s *InMemoryStore) Save(_ context.Context, st *Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st.JobID] = *st
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, jobID string) (*Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[jobID]
	if !ok {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return &st, nil
}

type InMemoryArtifactStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	return &InMemoryArtifactStore{data: map[string][]byte{}}
}

func (s *InMemoryArtifactStore) Put(_ context.Context, jobID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[jobID] = append([]byte(nil), data...)
	return nil
}

func (s *InMemoryArtifactStore) Get(_ context.Context, jobID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[jobID]
	if !ok {
		return nil, errors.NewArtifactNotFoundError(ArtifactKeyPrefix + jobID)
	}
	return d, nil
}

func (s *InMemoryArtifactStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, jobID)
	return nil
}
