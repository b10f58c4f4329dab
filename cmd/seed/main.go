package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/romeoscript/crime-report/internal/config"
	"github.com/romeoscript/crime-report/internal/db"
	"github.com/romeoscript/crime-report/internal/logging"
	"github.com/romeoscript/crime-report/internal/reports"
	"github.com/romeoscript/crime-report/internal/tracking"
)

var (
	csvPath = flag.String("csv", "", "Path to the source CSV (required)")
	dryRun  = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

// run must not call os.Exit: logger.Sync is deferred.
func run() error {
	if *csvPath == "" {
		return errors.New("--csv is required")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	rows, err := loadCSV(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load csv: %w", err)
	}
	fmt.Printf("parsed %d reports from %s\n", len(rows), *csvPath)
	if *dryRun {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	gdb, err := db.Connect(db.Options{DSN: cfg.DatabaseURL, MaxOpenConns: 2, Schema: "crime"}, logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := db.EnsureSchema(gdb, "crime"); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := reports.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Seed rows never carry evidence, so no media store is needed.
	svc := reports.NewService(reports.NewStore(gdb), nil, nil, tracking.NewGenerator(), logger)

	n, err := seed(context.Background(), svc, rows, logger)
	if err != nil {
		logger.Error("seeding stopped", zap.Int("seeded", n), zap.Error(err))
		return err
	}
	fmt.Printf("seeded %d reports\n", n)
	return nil
}

// seed submits rows in order and stops at the first failure, returning how
// many were stored before it.
func seed(ctx context.Context, svc *reports.Service, rows []reports.SubmitInput, logger *zap.Logger) (int, error) {
	for i, in := range rows {
		res, err := svc.Submit(ctx, in, nil)
		if err != nil {
			// +2: header line and 1-based numbering
			return i, fmt.Errorf("row %d: %w", i+2, err)
		}
		logger.Info("seeded report", zap.String("trackingNumber", res.TrackingNumber))
	}
	return len(rows), nil
}
