package emailverification

import (
	"context"
	"sync"
)

// InMemoryEmailVerificationRepository keeps records in a map.
type InMemoryEmailVerificationRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewInMemoryEmailVerificationRepository() *InMemoryEmailVerificationRepository {
	return &InMemoryEmailVerificationRepository{records: make(map[string]Record)}
}

func (r *InMemoryEmailVerificationRepository) Get(ctx context.Context, key string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *InMemoryEmailVerificationRepository) Put(ctx context.Context, key string, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = rec
	return nil
}

func (r *InMemoryEmailVerificationRepository) Update(ctx context.Context, key string, fn func(rec *Record) (UpdateAction, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return ErrNotFound
	}
	action, err := fn(&rec)
	if err != nil {
		return err
	}
	applyAction(r.records, key, rec, action)
	return nil
}

func (r *InMemoryEmailVerificationRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *InMemoryEmailVerificationRepository) DeleteStale(ctx context.Context, verifiedBefore, issuedBefore int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return deleteStale(r.records, verifiedBefore, issuedBefore), nil
}

func applyAction(records map[string]Record, key string, rec Record, action UpdateAction) {
	switch action {
	case SaveRecord:
		records[key] = rec
	case DeleteRecord:
		delete(records, key)
	}
}

func deleteStale(records map[string]Record, verifiedBefore, issuedBefore int64) int {
	removed := 0
	for key, rec := range records {
		if (rec.Verified && rec.VerifiedAt < verifiedBefore) || (!rec.Verified && rec.IssuedAt < issuedBefore) {
			delete(records, key)
			removed++
		}
	}
	return removed
}
