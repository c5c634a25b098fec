package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidIdentifier is returned when an identifier cannot be sent to the catalog API
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrCatalogAPIFailure is returned when a catalog API request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrMissingTitle is reported when a payload has no product title
	ErrMissingTitle = errors.New("payload has no title")

	// ErrMissingPrice is reported when a payload has no price block at all
	ErrMissingPrice = errors.New("payload has no price block")

	// ErrMalformedPayload is reported when a payload cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrStoreUnavailable is returned when the document store cannot be reached
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrInvalidDocument is returned for a single record the store refuses to write
	ErrInvalidDocument = errors.New("invalid document")
)

// Error classes used in record error notes and the run summary
const (
	ClassFetchError = "FetchError"
	ClassParseError = "ParseError"
	ClassAPIError   = "APIError"
)

// FetchError is returned by the fetcher once retries are exhausted or a
// non-retryable condition is hit. Status is zero for transport failures.
type FetchError struct {
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed with status %d: %s", e.Status, e.Message)
	}
	return "fetch failed: " + e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether another attempt could succeed
func (e *FetchError) Temporary() bool {
	switch {
	case errors.Is(e.Err, ErrInvalidIdentifier):
		return false
	case e.Status == 0:
		return true
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	}
	return false
}

// RecordError converts the fetch failure into the note stored on the record
func (e *FetchError) RecordError() *RecordError {
	return &RecordError{Class: ClassFetchError, Message: e.Message, Status: e.Status}
}

// ErrorEntry is one per-identifier failure collected during a run
type ErrorEntry struct {
	Identifier string
	Class      string
	Message    string
	Status     int
}

// GroupKey names the summary group this entry belongs to
func (e ErrorEntry) GroupKey() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Class, e.Status)
	}
	return e.Class
}
