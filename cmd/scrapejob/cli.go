package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/scrapejob"
	"github.com/fwojciec/scrapejob/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx     context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Jobs    scrapejob.JobService
	Limiter scrapejob.ClientLimiter
	Metrics *prometheus.Metrics
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel     string        `name:"log-level" env:"SCRAPEJOB_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Log level (${enum})"`
	LogFormat    string        `name:"log-format" env:"SCRAPEJOB_LOG_FORMAT" default:"text" enum:"text,json" help:"Log format (${enum})"`
	FetchTimeout time.Duration `name:"fetch-timeout" env:"SCRAPEJOB_FETCH_TIMEOUT" default:"30s" help:"Per-job fetch timeout"`
	Render       bool          `env:"SCRAPEJOB_RENDER" help:"Render pages in headless Chrome"`

	Serve  ServeCmd  `cmd:"" help:"Serve the scraping job API"`
	Scrape ScrapeCmd `cmd:"" help:"Scrape a single URL and print the job as JSON"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr       string        `env:"SCRAPEJOB_ADDR" default:":5000" help:"Listen address"`
	RateWindow time.Duration `name:"rate-window" env:"SCRAPEJOB_RATE_WINDOW" default:"5s" help:"Minimum interval between submissions per client"`
	TrustProxy bool          `name:"trust-proxy" env:"SCRAPEJOB_TRUST_PROXY" help:"Identify clients by X-Forwarded-For"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	URL      string        `arg:"" help:"Page URL"`
	Title    bool          `short:"t" help:"Extract title and meta description"`
	Links    bool          `short:"l" help:"Extract links"`
	Images   bool          `short:"i" help:"Extract images"`
	Headings bool          `short:"H" help:"Extract headings"`
	Selector string        `short:"s" help:"Comma-separated CSS selectors to extract"`
	Poll     time.Duration `default:"100ms" hidden:"" help:"Status polling interval"`
}
