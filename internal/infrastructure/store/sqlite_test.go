package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productlens/ingest/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "products.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s
}

func TestSQLiteStore_EnsureIndexesIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureIndexes(ctx))

	for _, spec := range ProductIndexes {
		if spec.FullText {
			continue
		}
		var name string
		err := s.db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, spec.Name).Scan(&name)
		require.NoError(t, err, "index %s", spec.Name)
	}

	var fts string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'products_fts'`).Scan(&fts)
	require.NoError(t, err)
}

func TestSQLiteStore_UpsertBatch(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	result, err := s.UpsertBatch(ctx, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Upserted)
	assert.Empty(t, result.Failed)

	doc, err := s.Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 19999.0, doc["price_numeric"])
	assert.Equal(t, "smartphone", doc["product_type"])

	errDoc, err := s.Get(ctx, "A3")
	require.NoError(t, err)
	assert.Len(t, errDoc, 2)
	assert.NotContains(t, errDoc, "is_best_seller")
}

func TestSQLiteStore_UpsertTwiceKeepsOneDocumentPerID(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	records := sampleRecords()

	_, err := s.UpsertBatch(ctx, records)
	require.NoError(t, err)

	rating := 4.1
	records[0].RatingNumeric = &rating
	_, err = s.UpsertBatch(ctx, records)
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, err := s.Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 4.1, doc["rating_numeric"])

	var ftsRows int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products_fts WHERE id = 'A1'`).Scan(&ftsRows)
	require.NoError(t, err)
	assert.Equal(t, 1, ftsRows)
}

func TestSQLiteStore_FullTextMatchesTitleAndReviews(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, sampleRecords())
	require.NoError(t, err)

	for _, term := range []string{"OnePlus", "camera"} {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM products_fts WHERE products_fts MATCH ?`, term).Scan(&id)
		require.NoError(t, err, "term %q", term)
		assert.Equal(t, "A1", id)
	}
}

func TestSQLiteStore_InvalidRecordIsCollected(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	result, err := s.UpsertBatch(ctx, []domain.CanonicalRecord{
		{ID: "", Title: "no id"},
		{ID: "B1", Title: "kept"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	require.Len(t, result.Failed, 1)
	assert.ErrorIs(t, result.Failed[0].Err, domain.ErrInvalidDocument)
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.EnsureIndexes(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSQLiteIndexDDL(t *testing.T) {
	tests := []struct {
		spec IndexSpec
		want string
	}{
		{
			spec: IndexSpec{Name: "idx_products_id", Fields: []string{"id"}, Unique: true},
			want: "CREATE UNIQUE INDEX IF NOT EXISTS idx_products_id ON products (id)",
		},
		{
			spec: IndexSpec{Name: "idx_products_type_price", Fields: []string{"product_type", "price_numeric"}},
			want: "CREATE INDEX IF NOT EXISTS idx_products_type_price ON products (json_extract(doc, '$.product_type'), json_extract(doc, '$.price_numeric'))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteIndexDDL(tt.spec))
		})
	}
}
