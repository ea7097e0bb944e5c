package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/ayursense/internal/config"
)

var (
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "etongue",
	Short: "Ayursense - electronic tongue analyzer client",
	Long: `Ayursense polls the e-tongue bridge for live readings, runs timed
collection sessions and reports whether a herbal liquid is safe to apply
for a declared skin condition.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel(),
			TimeFormat: time.TimeOnly,
		}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", path, "path to config.yaml")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
