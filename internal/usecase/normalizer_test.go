package usecase

import (
	"reflect"
	"testing"
	"time"

	"github.com/productlens/ingest/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(NormalizerConfig{
		ProductURLTemplate: "https://www.amazon.in/dp/%s",
		Now:                func() time.Time { return fixedNow },
	})
}

func rawBody(id, body string) *domain.RawResponse {
	return &domain.RawResponse{Identifier: id, Status: 200, Body: []byte(body)}
}

const fullPayload = `{
	"name": "Samsung Galaxy M34 5G Smartphone (Midnight Blue, 6GB RAM, 128GB Storage)",
	"brand": "Visit the Samsung Store",
	"pricing": "₹19,999",
	"average_rating": "4.2 out of 5 stars",
	"total_reviews": "1,234 ratings",
	"badges": ["#1 Best Seller in Smartphones"],
	"reviews": [
		{"stars": "5.0 out of 5 stars", "review": "Great battery"},
		{"stars": 1, "review": "Stopped charging"},
		{"rating": "3.0 out of 5 stars", "text": "Average camera"},
		{"stars": 4, "review": "Good value"},
		{"review": "No stars given"},
		{"stars": 2, "review": "Heats up"}
	]
}`

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		display string
		want    *float64
	}{
		{"rupee with thousands separator", "₹19,999", ptr(19999)},
		{"dollar with cents", "$1,299.50", ptr(1299.50)},
		{"rupee abbreviation", "Rs. 499", ptr(499)},
		{"negative", "-₹250", ptr(-250)},
		{"unavailable", "Price unavailable", nil},
		{"empty", "", nil},
		{"range", "₹1,299 - ₹1,499", nil},
		{"two decimal points", "1.2.3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePrice(tt.display)
			if !floatPtrEqual(got, tt.want) {
				t.Errorf("ParsePrice(%q) = %v, want %v", tt.display, deref(got), deref(tt.want))
			}
		})
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		display string
		want    *float64
	}{
		{"4.5 out of 5 stars", ptr(4.5)},
		{"5.0 out of 5 stars", ptr(5)},
		{"3 out of 5 stars", ptr(3)},
		{"4.1", ptr(4.1)},
		{"N/A", nil},
		{"", nil},
		{"7.5 out of 10", nil},
		{"out of 5 stars", nil},
	}

	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			got := ParseRating(tt.display)
			if !floatPtrEqual(got, tt.want) {
				t.Errorf("ParseRating(%q) = %v, want %v", tt.display, deref(got), deref(tt.want))
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := map[string]int{
		"1,234 ratings": 1234,
		"87":            87,
		"":              0,
		"no reviews":    0,
	}
	for in, want := range tests {
		if got := ParseCount(in); got != want {
			t.Errorf("ParseCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSentimentOf(t *testing.T) {
	tests := []struct {
		stars *float64
		want  string
	}{
		{ptr(5), SentimentPositive},
		{ptr(4), SentimentPositive},
		{ptr(3.5), SentimentNeutral},
		{ptr(3), SentimentNeutral},
		{ptr(2.5), SentimentNeutral},
		{ptr(2), SentimentNegative},
		{ptr(1), SentimentNegative},
		{nil, SentimentNeutral},
	}
	for _, tt := range tests {
		if got := SentimentOf(tt.stars); got != tt.want {
			t.Errorf("SentimentOf(%v) = %s, want %s", deref(tt.stars), got, tt.want)
		}
	}
}

func TestNormalize_FullPayload(t *testing.T) {
	n := newTestNormalizer()

	record := n.Normalize("B0C7BTEST", rawBody("B0C7BTEST", fullPayload))

	if record.Error != nil {
		t.Fatalf("unexpected error note: %+v", record.Error)
	}
	if record.ID != "B0C7BTEST" {
		t.Errorf("ID = %s, want B0C7BTEST", record.ID)
	}
	if record.Brand != "Samsung" {
		t.Errorf("Brand = %q, want Samsung", record.Brand)
	}
	if record.ProductType != "smartphone" {
		t.Errorf("ProductType = %s, want smartphone", record.ProductType)
	}
	if record.PriceDisplay != "₹19,999" {
		t.Errorf("PriceDisplay = %q, want ₹19,999", record.PriceDisplay)
	}
	if !floatPtrEqual(record.PriceNumeric, ptr(19999)) {
		t.Errorf("PriceNumeric = %v, want 19999", deref(record.PriceNumeric))
	}
	if !floatPtrEqual(record.RatingNumeric, ptr(4.2)) {
		t.Errorf("RatingNumeric = %v, want 4.2", deref(record.RatingNumeric))
	}
	if record.ReviewsCount != 1234 {
		t.Errorf("ReviewsCount = %d, want 1234", record.ReviewsCount)
	}
	if !record.IsBestSeller {
		t.Error("IsBestSeller = false, want true from badge")
	}
	if record.ProductURL != "https://www.amazon.in/dp/B0C7BTEST" {
		t.Errorf("ProductURL = %s", record.ProductURL)
	}
	if record.ScrapedAt == nil || !record.ScrapedAt.Equal(fixedNow) {
		t.Errorf("ScrapedAt = %v, want %v", record.ScrapedAt, fixedNow)
	}

	wantPositive := []string{"Great battery", "Good value"}
	wantNegative := []string{"Stopped charging", "Heats up"}
	wantNeutral := []string{"Average camera", "No stars given"}
	if !reflect.DeepEqual(record.PositiveReviews, wantPositive) {
		t.Errorf("PositiveReviews = %v, want %v", record.PositiveReviews, wantPositive)
	}
	if !reflect.DeepEqual(record.NegativeReviews, wantNegative) {
		t.Errorf("NegativeReviews = %v, want %v", record.NegativeReviews, wantNegative)
	}
	if !reflect.DeepEqual(record.NeutralReviews, wantNeutral) {
		t.Errorf("NeutralReviews = %v, want %v", record.NeutralReviews, wantNeutral)
	}
}

func TestNormalize_ReviewPartitionIsTotalAndDisjoint(t *testing.T) {
	n := newTestNormalizer()
	body := `{"name":"x","pricing":"1","reviews":[
		{"stars":5,"review":"r1"},{"stars":"4.5 out of 5 stars","review":"r2"},{"stars":3,"review":"r3"},
		{"stars":"bad","review":"r4"},{"stars":2,"review":"r5"},{"stars":1.5,"review":"r6"},
		{"stars":0,"review":"r7"},{"stars":3.9,"review":"r8"}]}`

	record := n.Normalize("P1", rawBody("P1", body))

	seen := make(map[string]int)
	for _, bucket := range [][]string{record.PositiveReviews, record.NegativeReviews, record.NeutralReviews} {
		for _, r := range bucket {
			seen[r]++
		}
	}
	if len(seen) != 8 {
		t.Fatalf("got %d distinct reviews across buckets, want 8", len(seen))
	}
	for review, count := range seen {
		if count != 1 {
			t.Errorf("review %s appears in %d buckets", review, count)
		}
	}
	if record.ReviewCount() != 8 {
		t.Errorf("ReviewCount() = %d, want 8", record.ReviewCount())
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()
	raw := rawBody("B0C7BTEST", fullPayload)

	first := n.Normalize("B0C7BTEST", raw)
	for i := 0; i < 5; i++ {
		again := n.Normalize("B0C7BTEST", raw)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestNormalize_UnparseableFieldsStayNull(t *testing.T) {
	n := newTestNormalizer()
	body := `{"name":"Boat Rockerz 450 Bluetooth Headphones","pricing":"Price unavailable","average_rating":"N/A"}`

	record := n.Normalize("H1", rawBody("H1", body))

	if record.Error != nil {
		t.Errorf("Error = %+v, want nil for unparseable non-critical fields", record.Error)
	}
	if record.PriceNumeric != nil {
		t.Errorf("PriceNumeric = %v, want nil", *record.PriceNumeric)
	}
	if record.PriceDisplay != "Price unavailable" {
		t.Errorf("PriceDisplay = %q, want verbatim display", record.PriceDisplay)
	}
	if record.RatingNumeric != nil {
		t.Errorf("RatingNumeric = %v, want nil", *record.RatingNumeric)
	}
	if record.ProductType != "headphones" {
		t.Errorf("ProductType = %s, want headphones", record.ProductType)
	}
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	n := newTestNormalizer()

	t.Run("missing title keeps partial fields", func(t *testing.T) {
		record := n.Normalize("M1", rawBody("M1", `{"pricing":"₹999","average_rating":"4.0 out of 5 stars"}`))

		if record.Error == nil || record.Error.Class != domain.ClassParseError {
			t.Fatalf("Error = %+v, want ParseError", record.Error)
		}
		if record.Error.Message != domain.ErrMissingTitle.Error() {
			t.Errorf("Message = %q", record.Error.Message)
		}
		if !floatPtrEqual(record.PriceNumeric, ptr(999)) {
			t.Errorf("PriceNumeric = %v, want 999", deref(record.PriceNumeric))
		}
		if !floatPtrEqual(record.RatingNumeric, ptr(4)) {
			t.Errorf("RatingNumeric = %v, want 4", deref(record.RatingNumeric))
		}
	})

	t.Run("missing price block", func(t *testing.T) {
		record := n.Normalize("M2", rawBody("M2", `{"name":"Apple iPad Air","pricing":null}`))

		if record.Error == nil || record.Error.Message != domain.ErrMissingPrice.Error() {
			t.Fatalf("Error = %+v, want missing price", record.Error)
		}
		if record.Title != "Apple iPad Air" || record.ProductType != "tablet" {
			t.Errorf("partial fields not kept: %+v", record)
		}
	})

	t.Run("list price stands in for pricing", func(t *testing.T) {
		record := n.Normalize("M3", rawBody("M3", `{"name":"Apple iPad Air","list_price":"₹59,900"}`))

		if record.Error != nil {
			t.Fatalf("Error = %+v, want nil", record.Error)
		}
		if !floatPtrEqual(record.PriceNumeric, ptr(59900)) {
			t.Errorf("PriceNumeric = %v, want 59900", deref(record.PriceNumeric))
		}
	})

	t.Run("both missing", func(t *testing.T) {
		record := n.Normalize("M4", rawBody("M4", `{"brand":"Sony"}`))

		want := domain.ErrMissingTitle.Error() + "; " + domain.ErrMissingPrice.Error()
		if record.Error == nil || record.Error.Message != want {
			t.Fatalf("Error = %+v, want %q", record.Error, want)
		}
	})
}

func TestNormalize_MalformedPayload(t *testing.T) {
	n := newTestNormalizer()

	for name, raw := range map[string]*domain.RawResponse{
		"nil response": nil,
		"empty body":   rawBody("X", "   "),
		"not json":     rawBody("X", "<html>captcha</html>"),
		"array body":   rawBody("X", `[{"name":"Apple iPhone 15"}]`),
		"null body":    rawBody("X", `null`),
	} {
		t.Run(name, func(t *testing.T) {
			record := n.Normalize("X", raw)
			if record.Error == nil || record.Error.Class != domain.ClassParseError {
				t.Fatalf("Error = %+v, want ParseError", record.Error)
			}
			if record.ID != "X" {
				t.Errorf("ID = %s, want X", record.ID)
			}
			if record.ScrapedAt != nil {
				t.Errorf("ScrapedAt = %v, want nil for undecodable payload", record.ScrapedAt)
			}
		})
	}
}

func TestNormalize_WrongTypedFieldCostsOnlyThatField(t *testing.T) {
	n := newTestNormalizer()
	const base = `"name":"Apple iPhone 15","pricing":"₹69,999","average_rating":"4.5 out of 5 stars"`

	tests := []struct {
		name       string
		extra      string
		bestSeller bool
		neutral    int
	}{
		{name: "best seller flag as string", extra: `"is_best_seller":"true"`, bestSeller: true},
		{name: "best seller flag as object", extra: `"is_best_seller":{"value":1}`},
		{name: "badges as single string", extra: `"badges":"Best Seller"`, bestSeller: true},
		{name: "badges with non-string items", extra: `"badges":[7,"#1 Best Seller"]`, bestSeller: true},
		{name: "review stars as bool", extra: `"reviews":[{"stars":true,"review":"ok"}]`, neutral: 1},
		{name: "reviews as object", extra: `"reviews":{"stars":5}`},
		{name: "total reviews as array", extra: `"total_reviews":[1,2]`},
		{name: "brand as number", extra: `"brand":12`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := n.Normalize("B1", rawBody("B1", "{"+base+","+tt.extra+"}"))

			if record.Error != nil {
				t.Fatalf("Error = %+v, want nil", record.Error)
			}
			if record.Title != "Apple iPhone 15" {
				t.Errorf("Title = %q", record.Title)
			}
			if !floatPtrEqual(record.PriceNumeric, ptr(69999)) {
				t.Errorf("PriceNumeric = %v, want 69999", deref(record.PriceNumeric))
			}
			if !floatPtrEqual(record.RatingNumeric, ptr(4.5)) {
				t.Errorf("RatingNumeric = %v, want 4.5", deref(record.RatingNumeric))
			}
			if record.IsBestSeller != tt.bestSeller {
				t.Errorf("IsBestSeller = %v, want %v", record.IsBestSeller, tt.bestSeller)
			}
			if len(record.NeutralReviews) != tt.neutral {
				t.Errorf("NeutralReviews = %v, want %d", record.NeutralReviews, tt.neutral)
			}
			if record.ScrapedAt == nil {
				t.Error("ScrapedAt = nil, want the run clock")
			}
		})
	}
}

func TestNormalize_TitleOfWrongTypeIsMissing(t *testing.T) {
	record := newTestNormalizer().Normalize("W1", rawBody("W1", `{"name":42,"pricing":"₹499"}`))

	if record.Error == nil || record.Error.Message != domain.ErrMissingTitle.Error() {
		t.Fatalf("Error = %+v, want missing title", record.Error)
	}
	if !floatPtrEqual(record.PriceNumeric, ptr(499)) {
		t.Errorf("PriceNumeric = %v, want 499", deref(record.PriceNumeric))
	}
}

func TestNormalize_PriceDisplayKeptVerbatim(t *testing.T) {
	record := newTestNormalizer().Normalize("P1", rawBody("P1", `{"name":"Mi Power Bank","pricing":" ₹1,999 "}`))

	if record.PriceDisplay != " ₹1,999 " {
		t.Errorf("PriceDisplay = %q, want %q", record.PriceDisplay, " ₹1,999 ")
	}
	if !floatPtrEqual(record.PriceNumeric, ptr(1999)) {
		t.Errorf("PriceNumeric = %v, want 1999", deref(record.PriceNumeric))
	}
}

func TestFlexString_NonScalarIsEmpty(t *testing.T) {
	for _, in := range []string{`true`, `{"a":1}`, `[4.5]`, `null`} {
		f := flexString("stale")
		if err := f.UnmarshalJSON([]byte(in)); err != nil {
			t.Errorf("UnmarshalJSON(%s) error = %v", in, err)
		}
		if f != "" {
			t.Errorf("UnmarshalJSON(%s) = %q, want empty", in, f)
		}
	}
}

func TestNormalize_EmbeddedError(t *testing.T) {
	n := newTestNormalizer()

	t.Run("string error", func(t *testing.T) {
		record := n.Normalize("E1", rawBody("E1", `{"error":"Product not available in this marketplace"}`))
		if record.Error == nil || record.Error.Class != domain.ClassAPIError {
			t.Fatalf("Error = %+v, want APIError", record.Error)
		}
		if record.Error.Message != "Product not available in this marketplace" {
			t.Errorf("Message = %q", record.Error.Message)
		}
	})

	t.Run("object error", func(t *testing.T) {
		record := n.Normalize("E2", rawBody("E2", `{"error":{"message":"blocked"}}`))
		if record.Error == nil || record.Error.Message != "blocked" {
			t.Fatalf("Error = %+v, want blocked", record.Error)
		}
	})

	t.Run("null error is ignored", func(t *testing.T) {
		record := n.Normalize("E3", rawBody("E3", `{"name":"Logitech Webcam C270","pricing":"₹1,795","error":null}`))
		if record.Error != nil {
			t.Fatalf("Error = %+v, want nil", record.Error)
		}
	})
}

func TestNormalize_BestSeller(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		body string
		want bool
	}{
		{`{"name":"a","pricing":"1","is_best_seller":true}`, true},
		{`{"name":"a","pricing":"1","is_best_seller":false,"badges":["Best Seller"]}`, false},
		{`{"name":"a","pricing":"1","badges":["Amazon's Choice"]}`, false},
		{`{"name":"a","pricing":"1","badges":["#1 Bestseller"]}`, true},
		{`{"name":"a","pricing":"1"}`, false},
	}
	for _, tt := range tests {
		record := n.Normalize("B", rawBody("B", tt.body))
		if record.IsBestSeller != tt.want {
			t.Errorf("%s: IsBestSeller = %v, want %v", tt.body, record.IsBestSeller, tt.want)
		}
	}
}

func TestNormalize_ProductURLFromPayload(t *testing.T) {
	n := newTestNormalizer()

	record := n.Normalize("U1", rawBody("U1", `{"name":"a","pricing":"1","product_url":"https://example.com/p/U1"}`))
	if record.ProductURL != "https://example.com/p/U1" {
		t.Errorf("ProductURL = %s", record.ProductURL)
	}

	bare := NewNormalizer(NormalizerConfig{})
	record = bare.Normalize("U2", rawBody("U2", `{"name":"a","pricing":"1"}`))
	if record.ProductURL != "" {
		t.Errorf("ProductURL = %s, want empty without template", record.ProductURL)
	}
}

func TestCleanBrand(t *testing.T) {
	tests := map[string]string{
		"Visit the Apple Store": "Apple",
		"Brand: OnePlus":        "OnePlus",
		"  Sony ":               "Sony",
		"":                      "",
	}
	for in, want := range tests {
		if got := cleanBrand(in); got != want {
			t.Errorf("cleanBrand(%q) = %q, want %q", in, got, want)
		}
	}
}

func ptr(v float64) *float64 {
	return &v
}

func deref(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
