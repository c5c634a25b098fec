package domain

import (
	"encoding/json"
	"time"
)

// ProductTypeUnknown is assigned when no category rule matches
const ProductTypeUnknown = "unknown"

// RawResponse is the unparsed payload returned by the catalog API for one identifier
type RawResponse struct {
	Identifier string
	Status     int
	Body       []byte
	FetchedAt  time.Time
}

// CanonicalRecord is the normalized product document persisted to the store.
// Numeric fields are pointers so an unparseable display string stays null instead of zero.
type CanonicalRecord struct {
	ID              string       `json:"id"`
	Title           string       `json:"title,omitempty"`
	Brand           string       `json:"brand,omitempty"`
	ProductType     string       `json:"product_type,omitempty"`
	PriceDisplay    string       `json:"price_display,omitempty"`
	PriceNumeric    *float64     `json:"price_numeric,omitempty"`
	RatingDisplay   string       `json:"rating_display,omitempty"`
	RatingNumeric   *float64     `json:"rating_numeric,omitempty"`
	ReviewsCount    int          `json:"reviews_count"`
	PositiveReviews []string     `json:"positive_reviews,omitempty"`
	NegativeReviews []string     `json:"negative_reviews,omitempty"`
	NeutralReviews  []string     `json:"neutral_reviews,omitempty"`
	IsBestSeller    bool         `json:"is_best_seller"`
	ProductURL      string       `json:"product_url,omitempty"`
	ScrapedAt       *time.Time   `json:"scraped_at,omitempty"`
	Error           *RecordError `json:"error,omitempty"`
}

// Failed reports whether the record carries an error note
func (r *CanonicalRecord) Failed() bool {
	return r.Error != nil
}

// ReviewCount returns the number of reviews across all sentiment buckets
func (r *CanonicalRecord) ReviewCount() int {
	return len(r.PositiveReviews) + len(r.NegativeReviews) + len(r.NeutralReviews)
}

// MarshalJSON omits reviews_count and is_best_seller on records that carry nothing but an id and an error,
// so fetch failures stay free of enrichment fields in the document store.
func (r CanonicalRecord) MarshalJSON() ([]byte, error) {
	type alias CanonicalRecord
	out := struct {
		alias
		ReviewsCount *int  `json:"reviews_count,omitempty"`
		IsBestSeller *bool `json:"is_best_seller,omitempty"`
	}{alias: alias(r)}
	if !r.errorOnly() {
		count, flag := r.ReviewsCount, r.IsBestSeller
		out.ReviewsCount = &count
		out.IsBestSeller = &flag
	}
	return json.Marshal(out)
}

func (r *CanonicalRecord) errorOnly() bool {
	return r.Error != nil && r.ScrapedAt == nil && r.Title == ""
}

// RecordError is the structured error note stored on a failed record
type RecordError struct {
	Class   string `json:"class"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

// NewErrorRecord builds a record that carries only the identifier and the error note
func NewErrorRecord(id string, recErr *RecordError) CanonicalRecord {
	return CanonicalRecord{ID: id, Error: recErr}
}

// UpsertResult summarizes one UpsertBatch call
type UpsertResult struct {
	Upserted int
	Failed   []WriteError
}

// WriteError describes a single record that could not be written
type WriteError struct {
	ID  string
	Err error
}

func (e WriteError) Error() string {
	return e.ID + ": " + e.Err.Error()
}
