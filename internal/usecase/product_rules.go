package usecase

import (
	"strings"
	"unicode"

	"github.com/productlens/ingest/internal/domain"
)

// CategoryRule maps a keyword set to a product type. A keyword matches when
// it appears as whole words in the title or brand, case-insensitively.
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultCategoryRules is evaluated top to bottom and the first match wins.
// Accessories come first so "tablet cover" or "iPhone charger" never land on
// the device they are sold for; wearables and audio precede phones because
// their titles routinely name the phone they pair with.
var DefaultCategoryRules = []CategoryRule{
	{Category: "accessory", Keywords: []string{
		"phone case", "back cover", "case cover", "flip cover", "screen protector", "screen guard",
		"tempered glass", "charger", "charging cable", "usb cable", "adapter", "stylus",
	}},
	{Category: "power_bank", Keywords: []string{"power bank", "powerbank"}},
	{Category: "smartwatch", Keywords: []string{
		"smartwatch", "smart watch", "fitness band", "fitness tracker", "smart band",
	}},
	{Category: "headphones", Keywords: []string{
		"headphone", "headphones", "earphone", "earphones", "earbud", "earbuds",
		"headset", "neckband", "airpods", "tws",
	}},
	{Category: "speaker", Keywords: []string{
		"speaker", "speakers", "soundbar", "sound bar", "home theatre", "echo dot",
	}},
	{Category: "laptop", Keywords: []string{"laptop", "notebook", "macbook", "chromebook", "ultrabook"}},
	{Category: "tablet", Keywords: []string{"tablet", "ipad", "galaxy tab"}},
	{Category: "smartphone", Keywords: []string{
		"smartphone", "mobile phone", "phone", "iphone", "5g mobile", "4g mobile",
	}},
	{Category: "television", Keywords: []string{"smart tv", "led tv", "television", "tv"}},
	{Category: "camera", Keywords: []string{"camera", "dslr", "mirrorless", "webcam", "action cam"}},
	{Category: "monitor", Keywords: []string{"monitor", "display panel"}},
	{Category: "storage", Keywords: []string{
		"ssd", "hard drive", "hard disk", "pen drive", "flash drive", "memory card", "microsd",
	}},
}

// ProductClassifier assigns a product type using an ordered rule list
type ProductClassifier struct {
	rules []compiledRule
}

type compiledRule struct {
	category string
	keywords []string // normalized, space padded
}

// NewProductClassifier compiles the rules; nil selects DefaultCategoryRules
func NewProductClassifier(rules []CategoryRule) *ProductClassifier {
	if rules == nil {
		rules = DefaultCategoryRules
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{category: rule.Category}
		for _, kw := range rule.Keywords {
			if norm := normalizeWords(kw); norm != "" {
				cr.keywords = append(cr.keywords, " "+norm+" ")
			}
		}
		compiled = append(compiled, cr)
	}
	return &ProductClassifier{rules: compiled}
}

// Classify returns the category of the first matching rule, or "unknown"
func (c *ProductClassifier) Classify(title, brand string) string {
	text := " " + normalizeWords(title+" "+brand) + " "
	if strings.TrimSpace(text) == "" {
		return domain.ProductTypeUnknown
	}

	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return domain.ProductTypeUnknown
}

// normalizeWords lowercases s and collapses every run of non-alphanumerics into one space
func normalizeWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}
