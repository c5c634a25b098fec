package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/productlens/ingest/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id  TEXT PRIMARY KEY,
	doc TEXT NOT NULL
);
`

// SQLiteStore keeps each record as a JSON text document with expression indexes
// over the queried fields and an FTS4 table for title and review text.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database file at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure data dir: %v", domain.ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", domain.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pragma journal_mode: %v", domain.ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", domain.ErrStoreUnavailable, err)
	}

	log.Printf("[STORE] SQLite store opened at %s", path)
	return &SQLiteStore{db: db, path: path}, nil
}

// EnsureIndexes creates the products table, its indexes and the full-text table
func (s *SQLiteStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("%w: create table: %v", domain.ErrStoreUnavailable, err)
	}

	for _, spec := range ProductIndexes {
		if _, err := s.db.ExecContext(ctx, sqliteIndexDDL(spec)); err != nil {
			return fmt.Errorf("%w: create index %s: %v", domain.ErrStoreUnavailable, spec.Name, err)
		}
	}
	return nil
}

func sqliteIndexDDL(spec IndexSpec) string {
	if spec.FullText {
		return `CREATE VIRTUAL TABLE IF NOT EXISTS products_fts USING fts4(id, title, reviews)`
	}

	exprs := make([]string, len(spec.Fields))
	for i, field := range spec.Fields {
		if field == "id" {
			exprs[i] = "id"
			continue
		}
		exprs[i] = fmt.Sprintf("json_extract(doc, '$.%s')", field)
	}

	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON products (%s)", unique, spec.Name, strings.Join(exprs, ", "))
}

// UpsertBatch writes each record in its own transaction so one bad record
// does not roll back the others
func (s *SQLiteStore) UpsertBatch(ctx context.Context, records []domain.CanonicalRecord) (*domain.UpsertResult, error) {
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

		if err := s.upsertOne(ctx, record, doc); err != nil {
			log.Printf("[STORE] Upsert %s failed: %v", record.ID, err)
			result.Failed = append(result.Failed, domain.WriteError{ID: record.ID, Err: err})
			continue
		}
		result.Upserted++
	}

	return result, nil
}

func (s *SQLiteStore) upsertOne(ctx context.Context, record *domain.CanonicalRecord, doc []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO products (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, record.ID, string(doc)); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM products_fts WHERE id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear text index: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO products_fts (id, title, reviews) VALUES (?, ?, ?)`,
		record.ID, record.Title, reviewText(record),
	); err != nil {
		return fmt.Errorf("write text index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get loads the stored document for id
func (s *SQLiteStore) Get(ctx context.Context, id string) (map[string]interface{}, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM products WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}

// Count returns the number of stored documents
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
