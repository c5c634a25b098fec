package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/productlens/ingest/internal/domain"
)

// IndexSpec describes one index of the product collection
type IndexSpec struct {
	Name     string
	Fields   []string
	Unique   bool
	FullText bool
}

// ProductIndexes is the index set every store provisions
var ProductIndexes = []IndexSpec{
	{Name: "idx_products_id", Fields: []string{"id"}, Unique: true},
	{Name: "idx_products_product_type", Fields: []string{"product_type"}},
	{Name: "idx_products_price_numeric", Fields: []string{"price_numeric"}},
	{Name: "idx_products_rating_numeric", Fields: []string{"rating_numeric"}},
	{Name: "idx_products_type_price", Fields: []string{"product_type", "price_numeric"}},
	{Name: "idx_products_best_seller", Fields: []string{"is_best_seller"}},
	{Name: "idx_products_text", Fields: []string{"title", "positive_reviews", "negative_reviews", "neutral_reviews"}, FullText: true},
}

// reviewText joins every review bucket for full-text indexing
func reviewText(record *domain.CanonicalRecord) string {
	parts := make([]string, 0, record.ReviewCount())
	parts = append(parts, record.PositiveReviews...)
	parts = append(parts, record.NegativeReviews...)
	parts = append(parts, record.NeutralReviews...)
	return strings.Join(parts, "\n")
}

// encodeDocument validates the record key and renders the stored JSON document
func encodeDocument(record *domain.CanonicalRecord) ([]byte, error) {
	if strings.TrimSpace(record.ID) == "" {
		return nil, fmt.Errorf("%w: empty id", domain.ErrInvalidDocument)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	return data, nil
}
