package medprice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Record is a structured product observation extracted from a web page.
// Name and Price are required; the rest is optional.
type Record struct {
	Name         string  `json:"brand_name"`
	Price        float64 `json:"price"`
	Composition  string  `json:"salt_composition,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
	PackSize     string  `json:"pack_size,omitempty"`
	InStock      *bool   `json:"in_stock,omitempty"`
}

// Valid reports whether the record carries the required name and a positive price.
func (r *Record) Valid() bool {
	return r != nil && strings.TrimSpace(r.Name) != "" && r.Price > 0
}

// Available returns the stock flag, treating an unknown flag as in stock.
func (r *Record) Available() bool {
	if r.InStock == nil {
		return true
	}
	return *r.InStock
}

// Entry returns the catalog entry candidate described by the record.
func (r *Record) Entry() *EntryCandidate {
	return &EntryCandidate{
		Name:         strings.TrimSpace(r.Name),
		Composition:  strings.TrimSpace(r.Composition),
		Manufacturer: strings.TrimSpace(r.Manufacturer),
		PackSize:     strings.TrimSpace(r.PackSize),
	}
}

// UnmarshalJSON decodes a record leniently. Extraction providers disagree on
// field names and on whether prices and stock flags are numbers, booleans or
// display strings, so every field accepts the shapes seen in practice.
// Fields that cannot be interpreted are left zero rather than failing.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		Name:         firstString(raw, "brand_name", "name", "product_name", "title"),
		Composition:  firstString(raw, "salt_composition", "composition", "ingredients", "generic_name"),
		Manufacturer: firstString(raw, "manufacturer", "brand", "marketer"),
		PackSize:     firstString(raw, "pack_size", "packSize", "pack"),
	}

	for _, key := range []string{"price", "mrp", "selling_price"} {
		if v, ok := raw[key]; ok {
			if p, ok := decodePrice(v); ok {
				r.Price = p
				break
			}
		}
	}

	for _, key := range []string{"in_stock", "inStock", "availability"} {
		if v, ok := raw[key]; ok {
			if b, ok := decodeStock(v); ok {
				r.InStock = &b
				break
			}
		}
	}

	return nil
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

func decodePrice(v json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, f > 0
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return ParsePrice(s)
	}
	return 0, false
}

func decodeStock(v json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return ParseStock(s)
	}
	return false, false
}

// ParsePrice extracts a positive price from display text such as
// "₹1,030.50", "MRP Rs. 30.5" or "30". Returns false if there is none.
func ParsePrice(s string) (float64, bool) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}

	var b strings.Builder
	seenDot := false
scan:
	for _, r := range s[start:] {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ',':
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		default:
			break scan
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// ParseStock interprets availability text. Schema.org availability URLs
// such as "https://schema.org/InStock" are understood.
func ParseStock(s string) (bool, bool) {
	norm := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch {
	case strings.Contains(norm, "outofstock"), strings.Contains(norm, "soldout"),
		strings.Contains(norm, "unavailable"), norm == "false", norm == "no":
		return false, true
	case strings.Contains(norm, "instock"), strings.Contains(norm, "available"),
		norm == "true", norm == "yes":
		return true, true
	}
	return false, false
}

// RecordSchema returns the JSON schema requested from extraction providers.
func RecordSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"brand_name":       map[string]any{"type": "string"},
			"salt_composition": map[string]any{"type": "string"},
			"manufacturer":     map[string]any{"type": "string"},
			"price":            map[string]any{"type": "number"},
			"pack_size":        map[string]any{"type": "string"},
			"in_stock":         map[string]any{"type": "boolean"},
		},
		"required": []string{"brand_name", "price"},
	}
}

// ExtractionPrompt instructs extraction providers how to fill RecordSchema.
const ExtractionPrompt = "Extract medicine details: brand name, salt/generic composition, " +
	"price (numeric only, in INR), manufacturer, pack size (e.g. 'strip of 15 tablets'), " +
	"and stock availability."

// String implements fmt.Stringer for logging.
func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s @ %.2f", r.Name, r.Price)
}

// DecodeRecord interprets an LLM's JSON answer, tolerating a Markdown code
// fence. Empty, null and non-object answers yield a nil record.
func DecodeRecord(text string) (*Record, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	text = strings.TrimSpace(text)
	if text == "" || text == "null" || !strings.HasPrefix(text, "{") {
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
