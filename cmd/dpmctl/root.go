package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dpm2/maintenance-api/internal/app"
	"github.com/dpm2/maintenance-api/internal/config"
	"github.com/dpm2/maintenance-api/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:          "dpmctl",
	Short:        "Maintenance dispatch console",
	SilenceUsage: true,
}

// withApp loads configuration, wires the service and runs fn with it
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log := logger.New("dpmctl")
			log.Error().Err(err).Msg("close database")
		}
	}()
	return fn(ctx, a)
}
