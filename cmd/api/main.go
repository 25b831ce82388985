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
	"syscall"
	"time"

	"github.com/aluiziolira/go-books-etl/api"
	"github.com/aluiziolira/go-books-etl/config"
	"github.com/aluiziolira/go-books-etl/sink"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", "", "Optional YAML config file")
	addr := flag.String("addr", "", "Listen address (default :3000)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.APIAddr = *addr
	}
	if *verbose {
		cfg.Verbose = true
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("api server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := sink.Connect(ctx, cfg.Mongo)
	if !store.Available() {
		return errors.New("book store is not reachable")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			slog.Error("close mongo", slog.Any("error", err))
		}
	}()

	server := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      api.NewHandler(store).Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	slog.Info("serving books",
		slog.String("addr", cfg.APIAddr),
		slog.String("collection", cfg.Mongo.Collection),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
