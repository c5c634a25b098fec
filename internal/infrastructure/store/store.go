package store

import (
	"context"
	"fmt"

	"github.com/productlens/ingest/internal/domain"
)

// Store backends
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects and configures a document store backend
type Config struct {
	Type       string
	DSN        string
	SQLitePath string
	MaxConns   int
}

// Open connects the configured backend
func Open(ctx context.Context, cfg Config) (domain.DocumentStore, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypePostgres:
		s, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store type %q", domain.ErrStoreUnavailable, cfg.Type)
	}
}
