package gemini

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fwojciec/medprice"
	"google.golang.org/genai"
)

// Ensure Extractor implements medprice.RecordExtractor at compile time.
var _ medprice.RecordExtractor = (*Extractor)(nil)

// Extractor implements medprice.RecordExtractor using Gemini structured output.
type Extractor struct {
	client *genai.Client

	// Model overrides DefaultModel.
	Model string
}

// NewExtractor creates a new Extractor.
func NewExtractor(client *genai.Client) *Extractor {
	return &Extractor{client: client}
}

// ExtractRecord asks Gemini to fill the record schema from Markdown content.
func (e *Extractor) ExtractRecord(ctx context.Context, url, content string) (*medprice.Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	result, err := e.client.Models.GenerateContent(ctx, modelOrDefault(e.Model),
		[]*genai.Content{genai.NewContentFromText(BuildExtractPrompt(url, content), genai.RoleUser)},
		BuildExtractConfig(),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini extract: %w", err)
	}
	if result == nil {
		return nil, medprice.Errorf(medprice.EINTERNAL, "gemini returned nil result")
	}

	return medprice.DecodeRecord(result.Text())
}

// BuildExtractConfig returns the GenerateContentConfig requesting JSON output
// shaped by medprice.RecordSchema.
func BuildExtractConfig() *genai.GenerateContentConfig {
	temp := float32(0)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{
				Text: medprice.ExtractionPrompt + " Use only facts present in the page. If the page does not describe a single purchasable medicine, answer null.",
			}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   Schema(medprice.RecordSchema()),
	}
}

// BuildExtractPrompt builds the user prompt containing the page.
func BuildExtractPrompt(url, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<source>%s</source>\n", url)
	fmt.Fprintf(&sb, "<page>\n%s\n</page>", content)
	return sb.String()
}

// Schema converts a JSON schema map, as returned by medprice.RecordSchema,
// into a genai.Schema. Unknown types are left unspecified.
func Schema(m map[string]any) *genai.Schema {
	s := &genai.Schema{Nullable: genai.Ptr(true)}
	if t, ok := m["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		keys := make([]string, 0, len(props))
		for k, v := range props {
			if sub, ok := v.(map[string]any); ok {
				p := Schema(sub)
				p.Nullable = nil
				s.Properties[k] = p
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		s.PropertyOrdering = keys
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	}
	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	}
	return genai.TypeUnspecified
}
