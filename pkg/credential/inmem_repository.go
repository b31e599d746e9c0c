package credential

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryAccountRepository keeps accounts in a map.
type InMemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]AccountRecord
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{accounts: make(map[uuid.UUID]AccountRecord)}
}

func (r *InMemoryAccountRepository) FindByEmail(ctx context.Context, email string) (*AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.accounts {
		if strings.EqualFold(rec.Email, email) {
			return &rec, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (r *InMemoryAccountRepository) FindByUID(ctx context.Context, uid uuid.UUID) (*AccountRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.accounts[uid]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &rec, nil
}

func (r *InMemoryAccountRepository) Create(ctx context.Context, rec AccountRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, rec.Email) {
			return fmt.Errorf("account with email %s already exists", rec.Email)
		}
	}
	r.accounts[rec.UID] = rec
	return nil
}

func (r *InMemoryAccountRepository) UpdatePasswordHash(ctx context.Context, uid uuid.UUID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.accounts[uid]
	if !ok {
		return ErrAccountNotFound
	}
	rec.PasswordHash = hash
	rec.PasswordUpdatedAt = &at
	r.accounts[uid] = rec
	return nil
}
