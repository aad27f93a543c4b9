package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/scrapejob"
	"github.com/fwojciec/scrapejob/goquery"
	scrapehttp "github.com/fwojciec/scrapejob/http"
	"github.com/fwojciec/scrapejob/inmem"
	"github.com/fwojciec/scrapejob/prometheus"
	"github.com/fwojciec/scrapejob/rod"
	"github.com/fwojciec/scrapejob/scrape"
	scrapeslog "github.com/fwojciec/scrapejob/slog"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Path of the optional .env file loaded before flags are parsed.
	EnvFile string

	// JobService overrides the in-process orchestrator. Set for testing.
	JobService scrapejob.JobService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		EnvFile: ".env",
	}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := godotenv.Load(m.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", m.EnvFile, err)
	}

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("scrapejob"),
		kong.Description("Asynchronous web scraping job service."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'scrapejob --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	deps.Logger = newLogger(stderr, cli.LogLevel, cli.LogFormat)

	if m.JobService != nil {
		deps.Jobs = m.JobService
	} else {
		closeFn, err := m.wire(cli, deps)
		if err != nil {
			return err
		}
		defer closeFn()
	}

	return kongCtx.Run(deps)
}

// wire builds the in-process job service and its collaborators.
func (m *Main) wire(cli *CLI, deps *Dependencies) (func(), error) {
	logger := deps.Logger
	store := inmem.NewJobStore()
	metrics := prometheus.NewMetrics(store)

	var fetcher scrapejob.Fetcher
	if cli.Render {
		f, err := rod.NewFetcher(rod.WithFetchTimeout(cli.FetchTimeout))
		if err != nil {
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed for --render")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = f
	} else {
		fetcher = scrapehttp.NewFetcher(scrapehttp.WithTimeout(cli.FetchTimeout))
	}
	fetcher = scrapeslog.NewLoggingFetcher(prometheus.NewInstrumentedFetcher(fetcher, metrics), logger)

	extractor := scrapeslog.NewLoggingExtractor(goquery.NewExtractor(), logger)

	orchestrator := scrape.NewOrchestrator(store, fetcher, extractor,
		scrape.WithFetchTimeout(cli.FetchTimeout),
		scrape.WithLogger(logger),
	)

	deps.Jobs = scrapeslog.NewLoggingJobService(prometheus.NewInstrumentedJobService(orchestrator, metrics), logger)
	deps.Limiter = scrape.NewClientLimiter(cli.Serve.RateWindow)
	deps.Metrics = metrics

	return func() {
		_ = orchestrator.Close()
		_ = fetcher.Close()
	}, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
