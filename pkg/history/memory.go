package history

import (
	"context"
	"slices"
	"sort"
	"sync"

	"tabular-qa/cdmcheck/pkg/report"
)

// MemoryStorage keeps runs in memory. Runs are lost on exit; it backs
// one-shot commands and tests.
type MemoryStorage struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs: make(map[string]*Run),
	}
}

// Store implements Storage.
func (s *MemoryStorage) Store(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = copyRun(run)
	return nil
}

// Get implements Storage.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRun(run), nil
}

// Query implements Storage.
func (s *MemoryStorage) Query(ctx context.Context, query *Query) ([]*Run, error) {
	if query == nil {
		query = &Query{}
	}

	s.mu.RLock()
	var results []*Run
	for _, run := range s.runs {
		if matchesQuery(run, query) {
			results = append(results, copyRun(run))
		}
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if query.Oldest {
			return results[i].StartedAt.Before(results[j].StartedAt)
		}
		return results[i].StartedAt.After(results[j].StartedAt)
	})

	start := min(query.Offset, len(results))
	end := len(results)
	if query.Limit > 0 {
		end = min(start+query.Limit, len(results))
	}
	return results[start:end], nil
}

// Count implements Storage.
func (s *MemoryStorage) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, run := range s.runs {
		if matchesQuery(run, query) {
			count++
		}
	}
	return count, nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, run := range s.runs {
		if matchesQuery(run, query) {
			delete(s.runs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close implements Storage.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]*Run)
	return nil
}

// Size returns the number of stored runs.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.runs)
}

func matchesQuery(run *Run, query *Query) bool {
	if len(query.IDs) > 0 && !slices.Contains(query.IDs, run.ID) {
		return false
	}
	if query.Since != nil && run.StartedAt.Before(*query.Since) {
		return false
	}
	if query.Until != nil && run.StartedAt.After(*query.Until) {
		return false
	}
	if query.Status != "" && run.Status != query.Status {
		return false
	}
	if query.SchemaPath != "" && run.SchemaPath != query.SchemaPath {
		return false
	}
	return true
}

func copyRun(run *Run) *Run {
	c := *run
	if run.CountsByKind != nil {
		c.CountsByKind = make(map[report.Kind]int, len(run.CountsByKind))
		for k, v := range run.CountsByKind {
			c.CountsByKind[k] = v
		}
	}
	c.Records = report.FromRecords(run.Records).Records()
	if len(c.Records) == 0 {
		c.Records = nil
	}
	return &c
}
