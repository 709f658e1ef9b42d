package main

import (
	"github.com/spf13/cobra"

	"leadbot/internal/config"
	"leadbot/internal/logging"
	"leadbot/internal/migrations"
)

func migrateCMD() *cobra.Command {
	var opts migrations.Options

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging)
			return migrations.Run(cfg.GetPostgreSQLURL(), opts)
		},
	}
	migrate.Flags().StringVar(&opts.Dir, "dir", "", "migrations source (file://migrations); embedded when empty")
	migrate.Flags().StringVar(&opts.Direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&opts.Steps, "steps", 0, "number of steps (0 = all)")

	return migrate
}
