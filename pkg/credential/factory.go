package credential

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewAccountRepository creates an account repository for the persistence
// type. Accounts have no file backend; "file" falls back to memory.
func NewAccountRepository(persistenceType string, pool *pgxpool.Pool) (AccountRepository, error) {
	switch persistenceType {
	case "memory", "file", "":
		return NewInMemoryAccountRepository(), nil
	case "postgres", "postgresql":
		if pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresAccountRepository(pool), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: memory, postgres)", persistenceType)
	}
}
