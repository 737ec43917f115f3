// agentd serves a safety-screened conversational agent over HTTP.
//
// Usage:
//
//	agentd                        # serve with defaults
//	agentd --config config.yaml   # serve with a config file
//
// Environment variables with the AGENTD prefix override file values.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/luminon/agentd/config"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.NewLoader().
		WithConfigPath(*configPath).
		WithValidator(func(cfg *config.Config) error {
			if (cfg.Auth.Mode == "bearer" || cfg.Auth.Mode == "jwt") && cfg.Auth.Secret == "" {
				return fmt.Errorf("auth mode %q requires a secret", cfg.Auth.Mode)
			}
			return nil
		}).
		Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := buildApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer app.shutdown(context.Background())

	if err := app.manager.Start(); err != nil {
		return err
	}
	logger.Info("agentd ready",
		zap.String("addr", app.manager.Addr()),
		zap.String("store", cfg.Store.Backend),
		zap.String("auth", cfg.Auth.Mode),
	)
	app.manager.WaitForShutdown()
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "agentd:", err)
		os.Exit(1)
	}
}
