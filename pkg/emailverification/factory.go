package emailverification

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backends accepted by OpenRepository.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// StoreConfig carries what each backend needs to open; fields a backend
// does not use are ignored.
type StoreConfig struct {
	Pool    *pgxpool.Pool
	DataDir string
}

// OpenRepository returns the verification record store for a persistence
// backend. An empty backend means memory.
func OpenRepository(backend string, cfg StoreConfig) (EmailVerificationRepository, error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemoryEmailVerificationRepository(), nil
	case BackendFile:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("verification store: file backend needs a data dir")
		}
		return NewFileEmailVerificationRepository(cfg.DataDir)
	case BackendPostgres, "postgresql":
		if cfg.Pool == nil {
			return nil, fmt.Errorf("verification store: postgres backend needs a pool")
		}
		return NewRepository(cfg.Pool), nil
	}
	return nil, fmt.Errorf("verification store: unknown backend %q", backend)
}
