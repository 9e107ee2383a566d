package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/enrich"
	"github.com/fwojciec/medprice/postgres"
	"github.com/fwojciec/medprice/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if wd, err := os.Getwd(); err == nil {
		if err := LoadDotEnv(wd); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}
	}

	m := NewMain()

	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if cerr := m.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path used when no --db or --database-url is given.
	DBPath string

	// Exactly one of SQLite and Postgres is open after Run.
	SQLite   *sqlite.DB
	Postgres *postgres.DB

	// Executor runs background enrichment started by searches.
	Executor *enrich.Executor

	// Services for end-to-end testing.
	CatalogService medprice.CatalogService
	JobService     medprice.JobService

	// Enrichment providers. When set before Run, they are used instead of
	// the ones built from flags.
	SearchProvider medprice.SearchProvider
	Scraper        medprice.Scraper

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close stops background work and then closes providers and the database.
// It is safe to call more than once.
func (m *Main) Close() error {
	var errs []error
	if m.Executor != nil {
		errs = append(errs, m.Executor.Close())
		m.Executor = nil
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	if m.SQLite != nil {
		errs = append(errs, m.SQLite.Close())
		m.SQLite = nil
	}
	if m.Postgres != nil {
		errs = append(errs, m.Postgres.Close())
		m.Postgres = nil
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("medprice"),
		kong.Description("Compare medicine prices across online pharmacies"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'medprice --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	logger, err := NewLogger(stderr, cli.LogFormat, cli.LogLevel)
	if err != nil {
		return err
	}
	deps.Logger = logger

	if err := m.openStore(ctx, cli, stderr); err != nil {
		return err
	}

	worker := &enrich.Worker{
		Jobs:        m.JobService,
		Catalog:     m.CatalogService,
		Concurrency: cli.Providers.Concurrency,
		Logger:      logger,
	}

	if cmd == "serve" || cmd == "search" || cmd == "enrich" {
		if err := m.wireProviders(ctx, cli.Providers, logger, stderr); err != nil {
			return err
		}
		worker.Search = m.SearchProvider
		worker.Scraper = m.Scraper
	}

	if cmd == "enrich" {
		worker.Progress = func(o enrich.Outcome, completed, total int) {
			fmt.Fprintf(stderr, "[%d/%d] %s %s\n", completed, total, o.Kind, o.URL)
		}
	}

	m.Executor = enrich.NewExecutor(ctx, cli.Providers.Workers, enrich.DefaultQueueSize)
	m.Executor.ErrorFunc = func(err error) {
		logger.Error("background enrichment failed", "err", err)
	}

	service := enrich.NewService(m.CatalogService, m.JobService, worker, m.Executor)
	service.Logger = logger

	deps.Search = service
	deps.Jobs = m.JobService
	deps.Runner = service

	return kongCtx.Run(deps)
}

// openStore opens Postgres when a connection string is configured and
// SQLite otherwise.
func (m *Main) openStore(ctx context.Context, cli *CLI, stderr io.Writer) error {
	if cli.DatabaseURL != "" {
		m.Postgres = postgres.NewDB(cli.DatabaseURL)
		if err := m.Postgres.Open(ctx); err != nil {
			m.Postgres = nil
			fmt.Fprintln(stderr, "Hint: Check MEDPRICE_DATABASE_URL and that the server has the pg_trgm extension available")
			return fmt.Errorf("failed to open postgres database: %w", err)
		}
		m.CatalogService = postgres.NewCatalogService(m.Postgres)
		m.JobService = postgres.NewJobService(m.Postgres)
		return nil
	}

	path := cli.DB
	if path == "" {
		path = m.DBPath
	}
	m.SQLite = sqlite.NewDB(path)
	if err := m.SQLite.Open(); err != nil {
		m.SQLite = nil
		fmt.Fprintln(stderr, "Hint: Set MEDPRICE_DB to use a different database path")
		return fmt.Errorf("failed to open database at %q: %w", path, err)
	}
	m.CatalogService = sqlite.NewCatalogService(m.SQLite)
	m.JobService = sqlite.NewJobService(m.SQLite)
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "medprice.db"
	}
	dir := filepath.Join(home, ".medprice")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "medprice.db")
}

// NewLogger returns a slog logger writing to w in the given format and level.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, medprice.Errorf(medprice.EINVALID, "invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, medprice.Errorf(medprice.EINVALID, "invalid log format %q", format)
}
