// Package openai implements record extraction on the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Default settings.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Ensure Extractor implements medprice.RecordExtractor at compile time.
var _ medprice.RecordExtractor = (*Extractor)(nil)

// Extractor implements medprice.RecordExtractor using an OpenAI chat model in
// JSON mode.
type Extractor struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewExtractor creates a new Extractor. Extra request options, such as
// option.WithBaseURL, are passed to the underlying client.
func NewExtractor(apiKey, model string, opts ...option.RequestOption) (*Extractor, error) {
	if apiKey == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "OpenAI API key required")
	}
	if model == "" {
		model = DefaultModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Extractor{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout sets the per-request timeout.
func (e *Extractor) SetTimeout(timeout time.Duration) {
	e.timeout = timeout
}

// ModelName returns the model used for extraction.
func (e *Extractor) ModelName() string {
	return e.model
}

// ExtractRecord asks the model to fill the record schema from Markdown content.
func (e *Extractor) ExtractRecord(ctx context.Context, url, content string) (*medprice.Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	completion, err := e.client.Chat.Completions.New(ctx, BuildParams(e.model, url, content))
	if err != nil {
		if isRateLimitError(err) {
			return nil, medprice.Errorf(medprice.EUNAVAILABLE, "openai rate limited")
		}
		return nil, fmt.Errorf("openai extract: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, medprice.Errorf(medprice.EINTERNAL, "openai returned no choices")
	}

	return medprice.DecodeRecord(completion.Choices[0].Message.Content)
}

// BuildParams returns the chat completion request for one page.
func BuildParams(model, url, content string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt()),
			openai.UserMessage(fmt.Sprintf("<source>%s</source>\n<page>\n%s\n</page>", url, content)),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	}
}

// SystemPrompt returns the instructions including the JSON schema to fill.
func SystemPrompt() string {
	schema, _ := json.Marshal(medprice.RecordSchema())
	return medprice.ExtractionPrompt +
		" Answer with a single JSON object matching this schema: " + string(schema) +
		". Use only facts present in the page. If the page does not describe a single purchasable medicine, answer {}."
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
