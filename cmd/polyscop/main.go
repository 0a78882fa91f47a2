// Command polyscop is the entry point of the whale-trade aggregation engine.
// It loads and validates configuration, sets up structured logging and
// signal handling, and runs the selected mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/emmatheo/polyscop/internal/app"
	"github.com/emmatheo/polyscop/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "polyscop",
	Short: "Polymarket whale-trade aggregation engine",
	Long: `polyscop ingests large Polymarket trades and derives trader, market and
category statistics. It serves them over a JSON API and a realtime websocket
stream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode("")
	},
}

func modeCmd(mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(mode)
		},
	}
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-insert archived trades from object storage into postgres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		from, err := time.Parse(time.DateOnly, fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to := from
		if toStr != "" {
			if to, err = time.Parse(time.DateOnly, toStr); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application := app.New(cfg, logger)
		defer application.Close()

		n, err := application.Backfill(ctx, from, to)
		if err != nil {
			return err
		}
		logger.Info("backfill complete", slog.Int64("inserted", n))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(config.RedactedConfig(cfg))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to configuration file")

	backfillCmd.Flags().String("from", "", "first UTC day to backfill (YYYY-MM-DD)")
	backfillCmd.Flags().String("to", "", "last UTC day to backfill (defaults to --from)")
	_ = backfillCmd.MarkFlagRequired("from")

	rootCmd.AddCommand(
		modeCmd(app.ModeServe, "Run the HTTP API and websocket stream"),
		modeCmd(app.ModeIngest, "Run the ingest pipeline only"),
		modeCmd(app.ModeAll, "Run the ingest pipeline, HTTP API and websocket stream"),
		modeCmd(app.ModeWatch, "Consume a remote stream and log whale trades"),
		backfillCmd,
		configCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// setup loads and validates the configuration and installs the JSON logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runMode(mode string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if mode != "" {
		cfg.Mode = mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger.Info("polyscop starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, cfg.Mode); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error", slog.String("error", err.Error()))
			return err
		}
	}

	logger.Info("polyscop stopped")
	return nil
}
