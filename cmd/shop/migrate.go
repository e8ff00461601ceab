package main

import (
	"fmt"

	"ecshop/internal/app"
	"ecshop/internal/config"
	"ecshop/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <user|order|payment>",
		Short:     "Create or upgrade the tables of one service",
		Args:      serviceArg(),
		ValidArgs: services,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log, err := logger.New(cfg.Service, cfg.LogLevel)
			if err != nil {
				return err
			}
			return app.Migrate(cfg, log)
		},
	}
}
