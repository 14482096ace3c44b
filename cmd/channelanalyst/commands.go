package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ChannelAnalyst/internal/app"
	"ChannelAnalyst/internal/config"
	"ChannelAnalyst/internal/domain"
	"ChannelAnalyst/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "channelanalyst",
	Short: "Telegram channel digest service",
	Long: `channelanalyst collects posts from a Telegram channel, ranks them with keyword
heuristics and publishes periodic analytical reports to target channels.

Example usage:
  channelanalyst serve               # listen, schedule reports, expose HTTP
  channelanalyst report daily        # build and send the daily report now
  channelanalyst report adhoc        # report on every unanalyzed post
  channelanalyst backfill            # import history from configured sources
  channelanalyst migrate             # create tables and indexes`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFrom(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		return cfg.Validate()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the listener, the report scheduler and the HTTP surface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:       "report <daily|weekly|monthly|semiannual|annual|adhoc>",
	Short:     "Generate and deliver one report",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"daily", "weekly", "monthly", "semiannual", "annual", "adhoc"},
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := domain.ParsePeriod(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			out, err := a.Report(ctx, period)
			if printErr := printJSON(cmd, out); printErr != nil {
				return printErr
			}
			return err
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Import channel history from the configured sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			res, err := a.Backfill(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema in the configured database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.Application) error {
			return a.Migrate(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $CHANNEL_ANALYST_CONFIG)")

	rootCmd.AddCommand(serveCmd, reportCmd, backfillCmd, migrateCmd)
}

// withApp builds the application for one command and tears it down afterwards.
// SIGINT and SIGTERM cancel the context passed to fn.
func withApp(parent context.Context, fn func(context.Context, *app.Application) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
