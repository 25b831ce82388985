package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/scraper"
	"github.com/aluiziolira/go-books-etl/sink"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", "", "Optional YAML config file")
	maxPages := flag.Int("pages", 0, "Number of catalogue pages to scrape (default 1)")
	imagesDir := flag.String("images", "", "Directory for thumbnail images (default images)")
	outputFile := flag.String("output", "", "Export file path")
	outputFormat := flag.String("format", "", "Export format: none, csv, json, or dual")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *maxPages, *imagesDir, *outputFile, *outputFormat, *metricsAddr, *verbose)

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := sink.Connect(ctx, cfg.Mongo)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("close mongo", slog.Any("error", err))
		}
	}()

	export, err := sink.NewOutputWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating export writer: %w", err)
	}
	if export != nil {
		defer func() {
			if err := export.Close(); err != nil {
				slog.Error("close export", slog.Any("error", err))
			}
		}()
	}

	s, err := scraper.NewScraper(cfg, scraper.Options{Out: os.Stdout, Export: export})
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.String("site", cfg.SiteURL),
		slog.Int("first_page", cfg.FirstPage),
		slog.Int("pages", cfg.MaxPages),
		slog.Bool("store", store.Available()),
	)

	state := &scraper.RunState{Sink: store}
	result, err := s.Run(ctx, state)
	if err != nil {
		slog.Error("run aborted",
			slog.Int("books_processed", state.Processed),
			slog.Int("pages_completed", result.PageCount),
		)
		return err
	}

	if export != nil {
		if err := export.Validate(); err != nil {
			slog.Warn("export validation failed", slog.Any("error", err))
		}
	}

	scraper.PrintSummary(os.Stdout, result)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, maxPages int, imagesDir, outputFile, outputFormat, metricsAddr string, verbose bool) {
	if maxPages > 0 {
		cfg.MaxPages = maxPages
	}
	if imagesDir != "" {
		cfg.ImagesDir = imagesDir
	}
	if outputFile != "" {
		cfg.OutputFile = outputFile
	}
	if outputFormat != "" {
		cfg.OutputFormat = strings.ToLower(outputFormat)
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if verbose {
		cfg.Verbose = true
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
