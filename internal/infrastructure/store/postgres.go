package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/productlens/ingest/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id  TEXT PRIMARY KEY,
	doc JSONB NOT NULL
)`

const postgresUpsert = `
INSERT INTO products (id, doc) VALUES ($1, $2::jsonb)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`

// postgresFieldTypes maps document fields to the cast used by their index expression
var postgresFieldTypes = map[string]string{
	"price_numeric":  "numeric",
	"rating_numeric": "numeric",
	"is_best_seller": "boolean",
}

// PostgresStore keeps each record as a JSONB document
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", domain.ErrStoreUnavailable, err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}

	log.Printf("[STORE] Postgres pool connected (max_conns=%d)", maxConns)
	return &PostgresStore{pool: pool}, nil
}

// EnsureIndexes creates the products table and its btree and GIN indexes
func (s *PostgresStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: create table: %v", domain.ErrStoreUnavailable, err)
	}

	for _, spec := range ProductIndexes {
		if _, err := s.pool.Exec(ctx, postgresIndexDDL(spec)); err != nil {
			return fmt.Errorf("%w: create index %s: %v", domain.ErrStoreUnavailable, spec.Name, err)
		}
	}
	return nil
}

func postgresIndexDDL(spec IndexSpec) string {
	if spec.FullText {
		parts := make([]string, len(spec.Fields))
		for i, field := range spec.Fields {
			if field == "title" {
				parts[i] = "coalesce(doc->>'title', '')"
				continue
			}
			parts[i] = fmt.Sprintf("coalesce(doc->'%s', '[]'::jsonb)::text", field)
		}
		return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON products USING GIN (to_tsvector('simple', %s))",
			spec.Name, strings.Join(parts, " || ' ' || "))
	}

	exprs := make([]string, len(spec.Fields))
	for i, field := range spec.Fields {
		switch cast, ok := postgresFieldTypes[field]; {
		case field == "id":
			exprs[i] = "id"
		case ok:
			exprs[i] = fmt.Sprintf("((doc->>'%s')::%s)", field, cast)
		default:
			exprs[i] = fmt.Sprintf("(doc->>'%s')", field)
		}
	}

	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON products (%s)", unique, spec.Name, strings.Join(exprs, ", "))
}

// UpsertBatch replaces or inserts each record; each statement commits on its own
func (s *PostgresStore) UpsertBatch(ctx context.Context, records []domain.CanonicalRecord) (*domain.UpsertResult, error) {
	result := &domain.UpsertResult{}

	for i := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record := &records[i]
		doc, err := encodeDocument(record)
		if err != nil {
			result.Failed = append(result.Failed, domain.WriteError{ID: record.ID, Err: err})
			continue
		}

		if _, err := s.pool.Exec(ctx, postgresUpsert, record.ID, json.RawMessage(doc)); err != nil {
			log.Printf("[STORE] Upsert %s failed: %v", record.ID, err)
			result.Failed = append(result.Failed, domain.WriteError{ID: record.ID, Err: err})
			continue
		}
		result.Upserted++
	}

	return result, nil
}

// Get loads the stored document for id
func (s *PostgresStore) Get(ctx context.Context, id string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := s.pool.QueryRow(ctx, `SELECT doc FROM products WHERE id = $1`, id).Scan(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Count returns the number of stored documents
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
