package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/medprice"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ medprice.TokenCounter = (*TokenCounter)(nil)

// TokenCounter measures product page Markdown the way the Extractor sends it:
// framed by the extraction prompt, with the extraction system instruction.
// The scraper trims pages against this count before calling Gemini, so the
// budget covers the whole request rather than the page alone.
type TokenCounter struct {
	tok    *tokenizer.LocalTokenizer
	config *genai.CountTokensConfig
}

// NewTokenCounter creates a TokenCounter for model. Counting is local; only
// the models the genai tokenizer ships with are accepted, others are EINVALID.
func NewTokenCounter(model string) (*TokenCounter, error) {
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, medprice.Errorf(medprice.EINVALID, "no local tokenizer for model %q: %v", model, err)
	}
	return &TokenCounter{
		tok:    tok,
		config: &genai.CountTokensConfig{SystemInstruction: BuildExtractConfig().SystemInstruction},
	}, nil
}

// CountTokens returns the token count of an extraction request for page.
// An empty page costs nothing, since the Extractor never sends one.
func (tc *TokenCounter) CountTokens(_ context.Context, page string) (int, error) {
	if page == "" {
		return 0, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{
		genai.NewContentFromText(BuildExtractPrompt("", page), genai.RoleUser),
	}, tc.config)
	if err != nil {
		return 0, fmt.Errorf("count extraction tokens: %w", err)
	}

	return int(result.TotalTokens), nil
}
