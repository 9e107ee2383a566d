package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/firecrawl"
	"github.com/fwojciec/medprice/gemini"
	"github.com/fwojciec/medprice/goquery"
	"github.com/fwojciec/medprice/htmltomarkdown"
	mphttp "github.com/fwojciec/medprice/http"
	"github.com/fwojciec/medprice/openai"
	"github.com/fwojciec/medprice/readability"
	"github.com/fwojciec/medprice/rod"
	"github.com/fwojciec/medprice/scrape"
	mpslog "github.com/fwojciec/medprice/slog"
	"github.com/fwojciec/medprice/trafilatura"
	"google.golang.org/genai"
)

// maxLLMTokens bounds the page content sent to the Gemini extractor.
const maxLLMTokens = 32000

// Provider names.
const (
	providerFirecrawl = "firecrawl"
	providerGemini    = "gemini"
	providerOpenAI    = "openai"
	providerLocal     = "local"
)

// ResolveSearch resolves which web search provider to use.
func (p ProviderFlags) ResolveSearch() (string, error) {
	switch p.SearchProvider {
	case providerFirecrawl:
		if p.FirecrawlAPIKey == "" {
			return "", medprice.Errorf(medprice.EINVALID, "FIRECRAWL_API_KEY not set")
		}
		return providerFirecrawl, nil
	case providerGemini:
		if p.GeminiAPIKey == "" {
			return "", medprice.Errorf(medprice.EINVALID, "GEMINI_API_KEY not set")
		}
		return providerGemini, nil
	}

	switch {
	case p.FirecrawlAPIKey != "":
		return providerFirecrawl, nil
	case p.GeminiAPIKey != "":
		return providerGemini, nil
	}
	return "", medprice.Errorf(medprice.EINVALID, "no search provider configured: set FIRECRAWL_API_KEY or GEMINI_API_KEY")
}

// ResolveScraper resolves which scraper handles candidates without inline records.
func (p ProviderFlags) ResolveScraper(search string) (string, error) {
	switch p.Scraper {
	case providerFirecrawl:
		if p.FirecrawlAPIKey == "" {
			return "", medprice.Errorf(medprice.EINVALID, "FIRECRAWL_API_KEY not set")
		}
		return providerFirecrawl, nil
	case providerLocal:
		return providerLocal, nil
	}
	if search == providerFirecrawl {
		return providerFirecrawl, nil
	}
	return providerLocal, nil
}

// ResolveLLM resolves which LLM reads records in the local scraper. An empty result
// means structured data only.
func (p ProviderFlags) ResolveLLM() (string, error) {
	switch p.LLM {
	case "none":
		return "", nil
	case providerGemini:
		if p.GeminiAPIKey == "" {
			return "", medprice.Errorf(medprice.EINVALID, "GEMINI_API_KEY not set")
		}
		return providerGemini, nil
	case providerOpenAI:
		if p.OpenAIAPIKey == "" {
			return "", medprice.Errorf(medprice.EINVALID, "OPENAI_API_KEY not set")
		}
		return providerOpenAI, nil
	}

	switch {
	case p.GeminiAPIKey != "":
		return providerGemini, nil
	case p.OpenAIAPIKey != "":
		return providerOpenAI, nil
	}
	return "", nil
}

// wireProviders builds the search provider and scraper from flags, unless
// they were set on Main already.
func (m *Main) wireProviders(ctx context.Context, flags ProviderFlags, logger *slog.Logger, stderr io.Writer) error {
	if m.SearchProvider != nil {
		return nil
	}

	search, err := flags.ResolveSearch()
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Get a Firecrawl key at https://firecrawl.dev or a Gemini key at https://aistudio.google.com/apikey")
		return err
	}
	scraperName, err := flags.ResolveScraper(search)
	if err != nil {
		return err
	}
	llmName, err := flags.ResolveLLM()
	if err != nil {
		return err
	}

	var fc *firecrawl.Client
	if search == providerFirecrawl || scraperName == providerFirecrawl {
		var opts []firecrawl.Option
		if flags.FirecrawlBaseURL != "" {
			opts = append(opts, firecrawl.WithBaseURL(flags.FirecrawlBaseURL))
		}
		fc = firecrawl.NewClient(flags.FirecrawlAPIKey, opts...)
	}

	var gc *genai.Client
	if search == providerGemini || (scraperName == providerLocal && llmName == providerGemini) {
		gc, err = gemini.NewClient(ctx, flags.GeminiAPIKey)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
	}

	var provider medprice.SearchProvider
	if search == providerFirecrawl {
		provider = fc
	} else {
		provider = gemini.NewSearcher(gc)
	}
	m.SearchProvider = mpslog.NewLoggingSearchProvider(provider, logger)

	var scraper medprice.Scraper
	if scraperName == providerFirecrawl {
		scraper = fc
	} else {
		local, err := m.localScraper(flags, llmName, gc, logger, stderr)
		if err != nil {
			return err
		}
		scraper = local
	}
	m.Scraper = mpslog.NewLoggingScraper(scraper, logger)
	return nil
}

// localScraper builds the fetch, structured data, content extraction and LLM
// pipeline.
func (m *Main) localScraper(flags ProviderFlags, llmName string, gc *genai.Client, logger *slog.Logger, stderr io.Writer) (*scrape.Scraper, error) {
	var fetcher medprice.Fetcher
	if flags.Browser {
		f, err := rod.NewFetcher()
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = mphttp.NewFetcher()
	}
	m.closers = append(m.closers, fetcher)

	s := scrape.NewScraper(
		mpslog.NewLoggingFetcher(fetcher, logger),
		htmltomarkdown.NewConverter(),
		trafilatura.NewExtractor(),
		readability.NewExtractor(),
	)
	s.Limiter = scrape.NewDomainLimiter(scrape.DefaultRPS)
	s.Structured = mpslog.NewLoggingRecordExtractor(goquery.NewExtractor(goquery.DefaultRegistry()), "goquery", logger)
	s.Logger = logger

	switch llmName {
	case providerGemini:
		s.LLM = mpslog.NewLoggingRecordExtractor(gemini.NewExtractor(gc), "gemini", logger)
		counter, err := gemini.NewTokenCounter(gemini.DefaultModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		s.Tokens = counter
		s.MaxTokens = maxLLMTokens
	case providerOpenAI:
		ext, err := openai.NewExtractor(flags.OpenAIAPIKey, flags.OpenAIModel)
		if err != nil {
			return nil, err
		}
		s.LLM = mpslog.NewLoggingRecordExtractor(ext, "openai", logger)
	}
	return s, nil
}
