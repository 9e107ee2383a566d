//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/medprice/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Integration_ReturnsRecord(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gemini.NewClient(ctx, apiKey)
	require.NoError(t, err)

	page := "# Dolo 650 Tablet\nManufacturer: Micro Labs Ltd\nSalt: Paracetamol (650mg)\n" +
		"strip of 15 tablets\nMRP ₹33.60\nAdd to cart"

	rec, err := gemini.NewExtractor(client).ExtractRecord(ctx, "https://example.com/dolo-650", page)

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Valid())
	assert.Contains(t, rec.Name, "Dolo")
}

func TestSearcher_Integration_ReturnsCandidates(t *testing.T) {
	t.Parallel()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := gemini.NewClient(ctx, apiKey)
	require.NoError(t, err)

	candidates, err := gemini.NewSearcher(client).Search(ctx, "Dolo 650 medicine price India", 5)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(candidates), 5)
	for _, c := range candidates {
		assert.NotEmpty(t, c.URL)
	}
}
