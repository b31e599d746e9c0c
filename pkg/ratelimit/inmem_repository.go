package ratelimit

import (
	"context"
	"slices"
	"sync"
)

// InMemoryAttemptRepository is an AttemptRepository for tests and single
// instance deployments.
type InMemoryAttemptRepository struct {
	mu   sync.Mutex
	logs map[string]AttemptLog
}

func NewInMemoryAttemptRepository() *InMemoryAttemptRepository {
	return &InMemoryAttemptRepository{logs: make(map[string]AttemptLog)}
}

func (r *InMemoryAttemptRepository) Get(ctx context.Context, key string) (*AttemptLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[key]
	if !ok {
		return nil, ErrNotFound
	}
	log.Attempts = slices.Clone(log.Attempts)
	return &log, nil
}

func (r *InMemoryAttemptRepository) Update(ctx context.Context, key string, fn func(log *AttemptLog) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log := r.logs[key]
	log.Attempts = slices.Clone(log.Attempts)
	if err := fn(&log); err != nil {
		return err
	}
	r.logs[key] = log
	return nil
}
