package medprice

import "context"

// TokenCounter counts tokens in text for a specific model.
// It bounds how much page content is sent to LLM-backed record extractors.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
