package main_test

import (
	"testing"

	"github.com/fwojciec/medprice"
	main "github.com/fwojciec/medprice/cmd/medprice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderFlags_ResolveSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   main.ProviderFlags
		want    string
		wantErr bool
	}{
		{name: "auto prefers firecrawl", flags: main.ProviderFlags{SearchProvider: "auto", FirecrawlAPIKey: "fc", GeminiAPIKey: "g"}, want: "firecrawl"},
		{name: "auto falls back to gemini", flags: main.ProviderFlags{SearchProvider: "auto", GeminiAPIKey: "g"}, want: "gemini"},
		{name: "auto without keys", flags: main.ProviderFlags{SearchProvider: "auto"}, wantErr: true},
		{name: "explicit gemini", flags: main.ProviderFlags{SearchProvider: "gemini", FirecrawlAPIKey: "fc", GeminiAPIKey: "g"}, want: "gemini"},
		{name: "explicit firecrawl without key", flags: main.ProviderFlags{SearchProvider: "firecrawl", GeminiAPIKey: "g"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.flags.ResolveSearch()

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, medprice.EINVALID, medprice.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviderFlags_ResolveScraper(t *testing.T) {
	t.Parallel()

	got, err := main.ProviderFlags{Scraper: "auto"}.ResolveScraper("firecrawl")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", got)

	got, err = main.ProviderFlags{Scraper: "auto"}.ResolveScraper("gemini")
	require.NoError(t, err)
	assert.Equal(t, "local", got)

	got, err = main.ProviderFlags{Scraper: "local", FirecrawlAPIKey: "fc"}.ResolveScraper("firecrawl")
	require.NoError(t, err)
	assert.Equal(t, "local", got)

	_, err = main.ProviderFlags{Scraper: "firecrawl"}.ResolveScraper("gemini")
	assert.Error(t, err)
}

func TestProviderFlags_ResolveLLM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   main.ProviderFlags
		want    string
		wantErr bool
	}{
		{name: "auto prefers gemini", flags: main.ProviderFlags{LLM: "auto", GeminiAPIKey: "g", OpenAIAPIKey: "o"}, want: "gemini"},
		{name: "auto falls back to openai", flags: main.ProviderFlags{LLM: "auto", OpenAIAPIKey: "o"}, want: "openai"},
		{name: "auto without keys means structured data only", flags: main.ProviderFlags{LLM: "auto"}, want: ""},
		{name: "none ignores keys", flags: main.ProviderFlags{LLM: "none", GeminiAPIKey: "g"}, want: ""},
		{name: "explicit openai without key", flags: main.ProviderFlags{LLM: "openai", GeminiAPIKey: "g"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.flags.ResolveLLM()

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
