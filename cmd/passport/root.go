package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"go.inout.gg/passport/internal/config"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "passport",
		Short:         "Username and password authentication server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringSliceVar(
		&opts.envFiles,
		"env-file",
		nil,
		"dotenv files to load (default: .env)",
	)

	cmd.AddCommand(newServeCmd(&opts))
	cmd.AddCommand(newMigrateCmd(&opts))

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("passport: %w", err)
	}

	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("passport: failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("passport: failed to ping database: %w", err)
	}

	return pool, nil
}
