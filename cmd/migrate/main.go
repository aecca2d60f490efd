// Command migrate applies schema migrations against the petition database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/casewright/petition-service/internal/config"
	"github.com/casewright/petition-service/internal/database"
	"github.com/casewright/petition-service/internal/observability"
)

type action struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (action, error) {
	var a action
	flag.BoolVar(&a.up, "up", false, "Run all pending migrations")
	flag.BoolVar(&a.down, "down", false, "Roll back the most recent migration")
	flag.IntVar(&a.steps, "steps", 0, "Run N migration steps (positive=up, negative=down)")
	flag.BoolVar(&a.version, "version", false, "Print the current migration version")
	flag.IntVar(&a.force, "force", -1, "Force set migration version (use to recover from failed migrations)")
	flag.StringVar(&a.path, "path", "", "Override the migrations directory path")
	flag.Parse()

	selected := 0
	for _, on := range []bool{a.up, a.down, a.steps != 0, a.version, a.force >= 0} {
		if on {
			selected++
		}
	}
	switch {
	case selected == 0:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nPlease specify one of: -up, -down, -steps N, -version, -force V")
		return a, fmt.Errorf("no action specified")
	case selected > 1:
		return a, fmt.Errorf("specify only one action at a time")
	}
	return a, nil
}

func run() error {
	a, err := parseFlags()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output: this is an operator-facing CLI.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if a.path != "" {
		migrationDir = a.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch {
	case a.up:
		logger.Info().Msg("running all pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case a.down:
		logger.Warn().Msg("rolling back the most recent migration")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case a.steps != 0:
		logger.Info().Int("steps", a.steps).Msg("running migration steps")
		if err := migrator.Steps(a.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case a.force >= 0:
		logger.Warn().Int("version", a.force).Msg("forcing migration version")
		if err := migrator.Force(a.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}

	reportVersion(migrator, logger)
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
