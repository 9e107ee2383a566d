package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/medprice"
	mphttp "github.com/fwojciec/medprice/http"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Search medprice.SearchService
	Jobs   medprice.JobReader
	Runner mphttp.JobRunner
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB          string `name:"db" env:"MEDPRICE_DB" help:"SQLite database path"`
	DatabaseURL string `name:"database-url" env:"MEDPRICE_DATABASE_URL" help:"Postgres connection string (overrides --db)"`
	LogFormat   string `name:"log-format" env:"MEDPRICE_LOG_FORMAT" enum:"text,json" default:"text" help:"Log format (text, json)"`
	LogLevel    string `name:"log-level" env:"MEDPRICE_LOG_LEVEL" enum:"debug,info,warn,error" default:"info" help:"Log level"`

	Providers ProviderFlags `embed:""`

	Serve  ServeCmd  `cmd:"" help:"Serve the HTTP API"`
	Search SearchCmd `cmd:"" help:"Search the catalog, enriching it when needed"`
	Job    JobCmd    `cmd:"" help:"Show the status of an enrichment job"`
	Jobs   JobsCmd   `cmd:"" help:"List enrichment jobs"`
	Enrich EnrichCmd `cmd:"" help:"Run a pending enrichment job in the foreground"`
	Entry  EntryCmd  `cmd:"" help:"Show an entry with its quotes and alternatives"`
}

// ProviderFlags selects and configures the external search and extraction
// providers used by enrichment.
type ProviderFlags struct {
	FirecrawlAPIKey  string `name:"firecrawl-api-key" env:"FIRECRAWL_API_KEY" help:"Firecrawl API key"`
	FirecrawlBaseURL string `name:"firecrawl-base-url" env:"FIRECRAWL_BASE_URL" help:"Firecrawl API base URL"`
	GeminiAPIKey     string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"Gemini API key"`
	OpenAIAPIKey     string `name:"openai-api-key" env:"OPENAI_API_KEY" help:"OpenAI API key"`
	OpenAIModel      string `name:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" help:"OpenAI model for record extraction"`

	SearchProvider string `name:"search-provider" env:"MEDPRICE_SEARCH_PROVIDER" enum:"auto,firecrawl,gemini" default:"auto" help:"Web search provider (auto, firecrawl, gemini)"`
	Scraper        string `name:"scraper" env:"MEDPRICE_SCRAPER" enum:"auto,firecrawl,local" default:"auto" help:"Scraper for candidates without inline records (auto, firecrawl, local)"`
	LLM            string `name:"llm" env:"MEDPRICE_LLM" enum:"auto,gemini,openai,none" default:"auto" help:"LLM for local record extraction (auto, gemini, openai, none)"`
	Browser        bool   `name:"browser" env:"MEDPRICE_BROWSER" help:"Render pages in headless Chrome when scraping locally"`

	Concurrency int `name:"concurrency" env:"MEDPRICE_CONCURRENCY" default:"4" help:"Candidates processed concurrently per job"`
	Workers     int `name:"workers" env:"MEDPRICE_WORKERS" default:"2" help:"Background enrichment workers"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `name:"addr" env:"MEDPRICE_ADDR" default:":8080" help:"Listen address"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query    string        `arg:"" help:"Medicine name or composition"`
	Wait     bool          `short:"w" help:"Wait for enrichment and print refreshed results"`
	Interval time.Duration `default:"2s" help:"Job polling interval with --wait"`
	Timeout  time.Duration `default:"10m" help:"Maximum time to wait with --wait"`
}

// JobCmd is the "job" subcommand.
type JobCmd struct {
	ID string `arg:"" help:"Job ID"`
}

// JobsCmd is the "jobs" subcommand.
type JobsCmd struct {
	Status string `help:"Filter by status (pending, processing, completed, failed)"`
	Limit  int    `short:"n" default:"25" help:"Maximum number of jobs"`
}

// EnrichCmd is the "enrich" subcommand.
type EnrichCmd struct {
	JobID string `arg:"" help:"Pending job ID"`
}

// EntryCmd is the "entry" subcommand.
type EntryCmd struct {
	ID string `arg:"" help:"Entry ID"`
}
