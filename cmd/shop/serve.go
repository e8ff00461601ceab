package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ecshop/internal/app"
	"ecshop/internal/config"
	"ecshop/internal/logger"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve <user|order|payment>",
		Short: "Run one service until SIGINT/SIGTERM",
		Long: `Run one service.

Examples:
  DATABASE_URL=memory JWT_SECRET=dev shop serve user
  PORT=8002 USER_SERVICE_URL=http://localhost:8001 PAYMENT_SERVICE_URL=http://localhost:8003 shop serve order`,
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

			a, err := app.New(cfg, log)
			if err != nil {
				log.Error("startup failed", slog.Any("error", err))
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("close storage", slog.Any("error", err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.Run(ctx)
		},
	}
}
