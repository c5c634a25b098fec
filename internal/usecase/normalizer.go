package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/productlens/ingest/internal/domain"
)

// Package-level compiled regex patterns
var (
	// everything that cannot be part of a decimal number
	priceNoiseRegex = regexp.MustCompile(`[^0-9.\-]`)

	// leading decimal of "4.5 out of 5 stars"
	leadingNumberRegex = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)

	nonDigitRegex = regexp.MustCompile(`[^0-9]`)
)

const maxRating = 5.0

// flexString accepts a JSON string or number and keeps its text form. Any
// other JSON value decodes to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	// booleans, objects and arrays carry no usable text
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// catalogPayload is the product document returned by the catalog API
type catalogPayload struct {
	Name          string          `json:"name"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Pricing       *flexString     `json:"pricing"`
	ListPrice     *flexString     `json:"list_price"`
	AverageRating flexString      `json:"average_rating"`
	TotalReviews  flexString      `json:"total_reviews"`
	Reviews       []catalogReview `json:"reviews"`
	IsBestSeller  *bool           `json:"is_best_seller"`
	Badges        []string        `json:"badges"`
	ProductURL    string          `json:"product_url"`
	Error         json.RawMessage `json:"error"`
}

type catalogReview struct {
	Stars  flexString `json:"stars"`
	Rating flexString `json:"rating"`
	Review string     `json:"review"`
	Text   string     `json:"text"`
}

// decodePayload reads the product document one field at a time, so a value
// of the wrong type costs only that field. Only a body that is not a JSON
// object fails.
func decodePayload(body []byte) (*catalogPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}

	return &catalogPayload{
		Name:          decodeString(fields["name"]),
		Title:         decodeString(fields["title"]),
		Brand:         decodeString(fields["brand"]),
		Pricing:       decodeOptionalFlex(fields["pricing"]),
		ListPrice:     decodeOptionalFlex(fields["list_price"]),
		AverageRating: decodeFlex(fields["average_rating"]),
		TotalReviews:  decodeFlex(fields["total_reviews"]),
		Reviews:       decodeReviews(fields["reviews"]),
		IsBestSeller:  decodeBool(fields["is_best_seller"]),
		Badges:        decodeStrings(fields["badges"]),
		ProductURL:    decodeString(fields["product_url"]),
		Error:         fields["error"],
	}, nil
}

var errNotObject = errors.New("payload is not a JSON object")

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeString(raw json.RawMessage) string {
	var s string
	if isAbsent(raw) || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func decodeFlex(raw json.RawMessage) flexString {
	var f flexString
	if isAbsent(raw) || json.Unmarshal(raw, &f) != nil {
		return ""
	}
	return f
}

// decodeOptionalFlex keeps the difference between a missing block and an empty one
func decodeOptionalFlex(raw json.RawMessage) *flexString {
	if isAbsent(raw) {
		return nil
	}
	f := decodeFlex(raw)
	return &f
}

// decodeBool accepts true/false and their string forms
func decodeBool(raw json.RawMessage) *bool {
	if isAbsent(raw) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	b, err := strconv.ParseBool(strings.TrimSpace(decodeString(raw)))
	if err != nil {
		return nil
	}
	return &b
}

// decodeStrings accepts a list of strings or a single string. Non-string
// list items are dropped.
func decodeStrings(raw json.RawMessage) []string {
	if isAbsent(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := decodeString(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	var out []string
	for _, item := range items {
		if s := decodeString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeReviews keeps every object or string entry of the review list. A
// bare string is a review without stars.
func decodeReviews(raw json.RawMessage) []catalogReview {
	if isAbsent(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	reviews := make([]catalogReview, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			if text := decodeString(item); text != "" {
				reviews = append(reviews, catalogReview{Text: text})
			}
			continue
		}
		reviews = append(reviews, catalogReview{
			Stars:  decodeFlex(fields["stars"]),
			Rating: decodeFlex(fields["rating"]),
			Review: decodeString(fields["review"]),
			Text:   decodeString(fields["text"]),
		})
	}
	return reviews
}

// NormalizerConfig holds settings for the response normalizer
type NormalizerConfig struct {
	Rules              []CategoryRule
	ProductURLTemplate string // fmt pattern with one %s for the identifier
	Now                func() time.Time
}

// Normalizer turns raw catalog payloads into canonical records. It performs
// no I/O; the only input besides the payload is the injected clock.
type Normalizer struct {
	classifier  *ProductClassifier
	urlTemplate string
	now         func() time.Time
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) *Normalizer {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		classifier:  NewProductClassifier(config.Rules),
		urlTemplate: config.ProductURLTemplate,
		now:         now,
	}
}

// Normalize never fails: malformed or incomplete payloads produce a record
// with the error note set and whatever fields could be recovered.
func (n *Normalizer) Normalize(id string, raw *domain.RawResponse) domain.CanonicalRecord {
	if raw == nil || len(bytes.TrimSpace(raw.Body)) == 0 {
		return domain.NewErrorRecord(id, parseError(domain.ErrMalformedPayload, "empty response body"))
	}

	payload, err := decodePayload(raw.Body)
	if err != nil {
		return domain.NewErrorRecord(id, parseError(domain.ErrMalformedPayload, err.Error()))
	}

	scrapedAt := n.now().UTC()
	record := domain.CanonicalRecord{
		ID:           id,
		Title:        firstNonEmpty(payload.Name, payload.Title),
		Brand:        cleanBrand(payload.Brand),
		ReviewsCount: ParseCount(string(payload.TotalReviews)),
		IsBestSeller: bestSeller(payload.IsBestSeller, payload.Badges),
		ProductURL:   n.productURL(id, payload.ProductURL),
		ScrapedAt:    &scrapedAt,
	}
	record.ProductType = n.classifier.Classify(record.Title, record.Brand)

	priceBlock := payload.Pricing
	if priceBlock == nil || strings.TrimSpace(string(*priceBlock)) == "" {
		if payload.ListPrice != nil {
			priceBlock = payload.ListPrice
		}
	}
	if priceBlock != nil {
		record.PriceDisplay = string(*priceBlock)
		record.PriceNumeric = ParsePrice(strings.TrimSpace(record.PriceDisplay))
	}

	record.RatingDisplay = strings.TrimSpace(string(payload.AverageRating))
	record.RatingNumeric = ParseRating(record.RatingDisplay)

	record.PositiveReviews, record.NegativeReviews, record.NeutralReviews = bucketReviews(payload.Reviews)

	if msg := embeddedError(payload.Error); msg != "" {
		record.Error = &domain.RecordError{Class: domain.ClassAPIError, Message: msg}
		return record
	}

	var missing []string
	if record.Title == "" {
		missing = append(missing, domain.ErrMissingTitle.Error())
	}
	if priceBlock == nil {
		missing = append(missing, domain.ErrMissingPrice.Error())
	}
	if len(missing) > 0 {
		record.Error = &domain.RecordError{
			Class:   domain.ClassParseError,
			Message: strings.Join(missing, "; "),
		}
	}

	return record
}

func (n *Normalizer) productURL(id, fromPayload string) string {
	if u := strings.TrimSpace(fromPayload); u != "" {
		return u
	}
	if strings.Contains(n.urlTemplate, "%s") {
		return fmt.Sprintf(n.urlTemplate, id)
	}
	return ""
}

// ParsePrice extracts the decimal value of a localized price string such as
// "₹19,999" or "$1,299.50". It returns nil when nothing parseable remains.
func ParsePrice(display string) *float64 {
	s := priceNoiseRegex.ReplaceAllString(display, "")
	// "Rs. 499" leaves a leading separator behind
	s = strings.Trim(s, ".")
	if s == "" {
		return nil
	}
	// a minus sign is only meaningful in front
	if strings.LastIndex(s, "-") > 0 {
		return nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ParseRating extracts the leading number of "4.5 out of 5 stars". Values
// outside 0..5 are rejected.
func ParseRating(display string) *float64 {
	m := leadingNumberRegex.FindStringSubmatch(display)
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value < 0 || value > maxRating {
		return nil
	}
	return &value
}

// ParseCount keeps the digits of a count such as "1,234 ratings"
func ParseCount(display string) int {
	digits := nonDigitRegex.ReplaceAllString(display, "")
	if digits == "" {
		return 0
	}
	count, err := strconv.Atoi(digits)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// Sentiment buckets
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// SentimentOf buckets a star value: 4 and above positive, 2 and below
// negative, everything else (including an unknown value) neutral.
func SentimentOf(stars *float64) string {
	switch {
	case stars == nil:
		return SentimentNeutral
	case *stars >= 4:
		return SentimentPositive
	case *stars <= 2:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// bucketReviews partitions reviews by sentiment, keeping input order in each bucket
func bucketReviews(reviews []catalogReview) (positive, negative, neutral []string) {
	for _, r := range reviews {
		text := strings.TrimSpace(firstNonEmpty(r.Review, r.Text))
		stars := ParseRating(firstNonEmpty(string(r.Stars), string(r.Rating)))

		switch SentimentOf(stars) {
		case SentimentPositive:
			positive = append(positive, text)
		case SentimentNegative:
			negative = append(negative, text)
		default:
			neutral = append(neutral, text)
		}
	}
	return positive, negative, neutral
}

// bestSeller prefers an explicit flag and falls back to the badge list
func bestSeller(flag *bool, badges []string) bool {
	if flag != nil {
		return *flag
	}
	for _, badge := range badges {
		name := normalizeWords(badge)
		if strings.Contains(name, "best seller") || strings.Contains(name, "bestseller") {
			return true
		}
	}
	return false
}

// cleanBrand strips storefront wording such as "Visit the Apple Store" or "Brand: Apple"
func cleanBrand(brand string) string {
	b := strings.TrimSpace(brand)
	b = strings.TrimPrefix(b, "Brand:")
	b = strings.TrimSpace(b)
	if strings.HasPrefix(b, "Visit the ") && strings.HasSuffix(b, " Store") {
		b = strings.TrimSuffix(strings.TrimPrefix(b, "Visit the "), " Store")
	}
	return strings.TrimSpace(b)
}

// embeddedError returns the message of an error the API reported inside a 2xx payload
func embeddedError(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return strings.TrimSpace(msg)
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

func parseError(err error, detail string) *domain.RecordError {
	return &domain.RecordError{
		Class:   domain.ClassParseError,
		Message: fmt.Sprintf("%v: %s", err, detail),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
