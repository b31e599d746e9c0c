package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const attemptsFile = "password_reset_attempts.json"

// FileAttemptRepository keeps every attempt log in one JSON file under dataDir.
type FileAttemptRepository struct {
	dataDir string
	logs    map[string]AttemptLog
	mutex   sync.Mutex
}

func NewFileAttemptRepository(dataDir string) (*FileAttemptRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileAttemptRepository{
		dataDir: dataDir,
		logs:    make(map[string]AttemptLog),
	}
	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return repo, nil
}

func (r *FileAttemptRepository) Get(ctx context.Context, key string) (*AttemptLog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	log, ok := r.logs[key]
	if !ok {
		return nil, ErrNotFound
	}
	log.Attempts = slices.Clone(log.Attempts)
	return &log, nil
}

func (r *FileAttemptRepository) Update(ctx context.Context, key string, fn func(log *AttemptLog) error) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, existed := r.logs[key]
	log := previous
	log.Attempts = slices.Clone(previous.Attempts)
	if err := fn(&log); err != nil {
		return err
	}

	r.logs[key] = log
	if err := r.save(); err != nil {
		if existed {
			r.logs[key] = previous
		} else {
			delete(r.logs, key)
		}
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

func (r *FileAttemptRepository) load() error {
	data, err := os.ReadFile(filepath.Join(r.dataDir, attemptsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &r.logs); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// save writes all logs to a temp file and renames it over the old one.
func (r *FileAttemptRepository) save() error {
	jsonData, err := json.MarshalIndent(r.logs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempFile := filepath.Join(r.dataDir, attemptsFile+".tmp")
	if err := os.WriteFile(tempFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, filepath.Join(r.dataDir, attemptsFile)); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
