package domain

import "context"

// CatalogFetcher retrieves the raw payload for one identifier
type CatalogFetcher interface {
	Fetch(ctx context.Context, id string) (*RawResponse, error)
}

// RecordNormalizer turns a raw payload into a canonical record
type RecordNormalizer interface {
	Normalize(id string, raw *RawResponse) CanonicalRecord
}

// DocumentStore persists canonical records keyed by id
type DocumentStore interface {
	// EnsureIndexes creates missing indexes; safe to call on every run
	EnsureIndexes(ctx context.Context) error
	// UpsertBatch replaces or inserts every record; per-record failures are
	// reported in the result, the error is reserved for store-wide failures
	UpsertBatch(ctx context.Context, records []CanonicalRecord) (*UpsertResult, error)
	Close() error
}
