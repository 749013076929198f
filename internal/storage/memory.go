package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/triathematician/blaisemath-sub005/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	batches     map[string]model.BatchRecord
	runOrder    []string
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.batches = make(map[string]model.BatchRecord)
	s.runOrder = nil
	s.order = nil
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if _, ok := s.runs[run.ID]; !ok {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) SaveBatch(_ context.Context, batch model.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if _, ok := s.batches[batch.ID]; !ok {
		s.order = append(s.order, batch.ID)
	}
	s.batches[batch.ID] = batch
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) (model.BatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch, ok := s.batches[id]
	return batch, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, q Query) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runOrder))
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		run := s.runs[s.runOrder[i]]
		if q.Scenario != "" && run.Scenario != q.Scenario {
			continue
		}
		out = append(out, run)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return limit(out, q.Limit), nil
}

func (s *MemoryStore) ListBatches(_ context.Context, q Query) ([]model.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BatchRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		batch := s.batches[s.order[i]]
		if q.Scenario != "" && batch.Scenario != q.Scenario {
			continue
		}
		out = append(out, batch)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	return limit(out, q.Limit), nil
}

func limit[T any](records []T, n int) []T {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}
