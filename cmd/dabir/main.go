package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dabirhq/dabir/internal/config"
	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "dabir",
		Short:         "School management and messenger assistant service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and bot pipeline",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			if err := db.Migrate(cfg.Postgres); err != nil {
				return err
			}
			logger.L.Info("migrations applied")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
