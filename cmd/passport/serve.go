package main

import (
	"github.com/spf13/cobra"

	"go.inout.gg/passport"
	"go.inout.gg/passport/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg)
			passport.DefaultLogger = logger

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if migrate {
				if err := migrateUp(ctx, cmd, pool, 0); err != nil {
					return err
				}
			}

			srv, err := server.New(pool, server.NewConfig(func(c *server.Config) {
				c.Logger = logger
				c.CSRFSecret = cfg.CSRFSecret
				c.CookieSecure = cfg.CookieSecure
				c.SessionExpiresIn = cfg.SessionExpiresIn
				c.ResetTicketExpiry = cfg.ResetTicketExpiry
			}))
			if err != nil {
				return err
			}

			return srv.Run(ctx, cfg.Addr, cfg.ShutdownTimeout)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}
