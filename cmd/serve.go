package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, zapLogger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = zapLogger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := server.New(cfg, logger).Run(ctx); err != nil {
			logger.WithError(err).Error("server stopped with an error")
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}
