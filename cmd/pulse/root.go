package main

import (
	"context"
	"fmt"

	"pulse/internal/app"
	"pulse/internal/config"
	"pulse/internal/observability"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configDir string

	cfg             *config.Config
	shutdownTracing func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:           "pulse",
	Short:         "Pulse social feed service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		if configDir != "" {
			paths = []string{configDir}
		}
		loaded, err := config.LoadConfig(paths...)
		if err != nil {
			return err
		}
		cfg = loaded
		observability.Configure(cfg.IsProduction(), cfg.LogLevel)

		shutdown, err := observability.InitTracing(cfg.TracingConfig(version))
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing == nil {
			return nil
		}
		return shutdownTracing(context.Background())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.yml")
	rootCmd.AddCommand(serveCmd, seedCmd, exportCmd, importCmd, statsCmd)
}

// withRuntime opens storage, runs fn and closes everything again.
func withRuntime(ctx context.Context, fn func(rt *app.Runtime) error) (err error) {
	rt, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(rt)
}
