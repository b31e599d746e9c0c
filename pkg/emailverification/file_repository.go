package emailverification

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

const recordsFile = "verification_codes.json"

// FileEmailVerificationRepository implements EmailVerificationRepository using file-based storage
type FileEmailVerificationRepository struct {
	dataDir string
	records map[string]Record
	mutex   sync.Mutex
}

// NewFileEmailVerificationRepository creates a new file-based email verification repository
func NewFileEmailVerificationRepository(dataDir string) (*FileEmailVerificationRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileEmailVerificationRepository{
		dataDir: dataDir,
		records: make(map[string]Record),
	}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return repo, nil
}

func (r *FileEmailVerificationRepository) Get(ctx context.Context, key string) (*Record, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *FileEmailVerificationRepository) Put(ctx context.Context, key string, rec Record) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.commit(func(records map[string]Record) { records[key] = rec })
}

func (r *FileEmailVerificationRepository) Update(ctx context.Context, key string, fn func(rec *Record) (UpdateAction, error)) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return ErrNotFound
	}
	action, err := fn(&rec)
	if err != nil {
		return err
	}
	if action == LeaveRecord {
		return nil
	}
	return r.commit(func(records map[string]Record) { applyAction(records, key, rec, action) })
}

func (r *FileEmailVerificationRepository) Delete(ctx context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.records[key]; !ok {
		return nil
	}
	return r.commit(func(records map[string]Record) { delete(records, key) })
}

func (r *FileEmailVerificationRepository) DeleteStale(ctx context.Context, verifiedBefore, issuedBefore int64) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	removed := 0
	err := r.commit(func(records map[string]Record) {
		removed = deleteStale(records, verifiedBefore, issuedBefore)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// commit applies change to a copy of the records, saves it and only then
// makes it current.
func (r *FileEmailVerificationRepository) commit(change func(records map[string]Record)) error {
	next := maps.Clone(r.records)
	change(next)
	if err := r.save(next); err != nil {
		return fmt.Errorf("failed to save: %w", err)
	}
	r.records = next
	return nil
}

func (r *FileEmailVerificationRepository) load() error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, recordsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// save writes records to a temp file and renames it over the old one.
func (r *FileEmailVerificationRepository) save(records map[string]Record) error {
	jsonData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, recordsFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filepath.Join(r.dataDir, recordsFile)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
