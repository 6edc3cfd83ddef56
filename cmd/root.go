// Package cmd holds the clover command line.
package cmd

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "clover",
	Short:         "Backend for the community settings screens of the dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files loaded before the process environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(registryCmd)
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the zap-backed logger; PRETTY_LOGS switches to the development encoder
func newLogger(cfg *config.Config) (ectologger.Logger, *zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	zapLogger, err := zapCfg.Build(zap.Fields(
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.Version),
	))
	if err != nil {
		return nil, nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), zapLogger, nil
}
