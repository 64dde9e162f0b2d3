package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"go.inout.gg/passport/passportmigrate"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	var upSteps, downSteps int

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withPool(root, func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
			return migrateUp(ctx, cmd, pool, upSteps)
		}),
	}
	up.Flags().IntVar(&upSteps, "steps", passportmigrate.DefaultUpStep, "number of migrations to apply (0 applies all)")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: withPool(root, func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
			m, err := passportmigrate.NewFromPool(pool)
			if err != nil {
				return err
			}

			versions, err := m.Down(ctx, &passportmigrate.MigrateOptions{Steps: downSteps})
			for _, v := range versions {
				cmd.Printf("rolled back %d\n", v)
			}

			return err
		}),
	}
	down.Flags().IntVar(&downSteps, "steps", passportmigrate.DefaultDownStep, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withPool(root, func(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
			m, err := passportmigrate.NewFromPool(pool)
			if err != nil {
				return err
			}

			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")

			for _, s := range statuses {
				state, appliedAt := "pending", "-"
				if s.Applied {
					state, appliedAt = "applied", s.AppliedAt.Format("2006-01-02 15:04:05")
				}

				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, state, appliedAt, s.Path)
			}

			return tw.Flush()
		}),
	}

	cmd.AddCommand(up, down, status)

	return cmd
}

func withPool(
	root *rootOptions,
	fn func(context.Context, *cobra.Command, *pgxpool.Pool) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := root.loadConfig()
		if err != nil {
			return err
		}

		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		return fn(ctx, cmd, pool)
	}
}

func migrateUp(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool, steps int) error {
	m, err := passportmigrate.NewFromPool(pool)
	if err != nil {
		return err
	}

	versions, err := m.Up(ctx, &passportmigrate.MigrateOptions{Steps: steps})
	for _, v := range versions {
		cmd.Printf("applied %d\n", v)
	}

	return err
}
