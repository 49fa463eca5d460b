// Command harvest fetches the configured listings and their comment trees and
// writes the accumulated rows to CSV, and optionally to SQLite and NATS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/internal/config"
	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/export"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
	"github.com/jamesprial/go-reddit-harvester/pkg/validation"
)

func main() {
	configPath := flag.String("config", "harvest.yaml", "path to the YAML configuration")
	consumeMode := flag.Bool("consume", false, "store rows published on nats.subject into output.sqlite instead of harvesting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runFn := run
	if *consumeMode {
		runFn = consume
	}
	if err := runFn(ctx, cfg, logger); err != nil {
		logger.Error("harvest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}
	clientCfg.Logger = logger

	client, err := harvester.NewClient(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	var failed int
	for _, req := range cfg.Requests() {
		if err := client.FetchAndMerge(ctx, req); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A missing or private community should not end the run.
			var httpErr *pkgerrs.HTTPError
			if errors.As(err, &httpErr) {
				failed++
				logger.Warn("listing skipped",
					slog.String("community", req.Community),
					slog.String("listing", string(req.Kind)),
					slog.String("error", err.Error()))
				continue
			}
			return err
		}
	}

	rows := client.Table().Rows()
	logger.Info("harvest complete", slog.Int("rows", len(rows)), slog.Int("failed_listings", failed))
	for _, err := range validation.ValidateRows(rows) {
		logger.Warn("invalid row", slog.String("error", err.Error()))
	}

	if err := writeCSV(cfg.Output, rows); err != nil {
		return err
	}
	if cfg.Output.SQLite != "" {
		if err := writeSQLite(ctx, cfg.Output.SQLite, rows); err != nil {
			return err
		}
	}
	if cfg.NATS.URL != "" {
		if err := publish(ctx, cfg.NATS, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(out config.OutputConfig, rows []types.Post) error {
	f, err := os.Create(out.CSV)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := export.WriteCSV(f, rows, export.CSVOptions{IncludeURL: out.IncludeURL}); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func writeSQLite(ctx context.Context, path string, rows []types.Post) error {
	store, err := export.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRows(ctx, rows)
}

func publish(ctx context.Context, cfg config.NATSConfig, rows []types.Post) error {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()
	return export.NewPublisher(nc, cfg.Subject).PublishAll(ctx, rows)
}

// consume stores every row published on the configured subject until ctx ends.
func consume(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.NATS.URL == "" {
		return &pkgerrs.ConfigError{Field: "nats.url", Message: "required to consume rows"}
	}
	if cfg.Output.SQLite == "" {
		return &pkgerrs.ConfigError{Field: "output.sqlite", Message: "required to consume rows"}
	}

	store, err := export.NewSQLiteStore(cfg.Output.SQLite)
	if err != nil {
		return err
	}
	defer store.Close()

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	sub, err := export.Subscribe(nc, cfg.NATS.Subject, func(msgCtx context.Context, row types.Post) {
		if err := store.SaveRows(msgCtx, []types.Post{row}); err != nil {
			logger.Error("store row failed", slog.String("post_id", row.ID), slog.String("error", err.Error()))
			return
		}
		logger.Debug("row stored", slog.String("post_id", row.ID))
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	logger.Info("consuming rows", slog.String("subject", cfg.NATS.Subject))

	<-ctx.Done()
	return sub.Drain()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
