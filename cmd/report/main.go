package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"job-digest/internal/app"
	"job-digest/internal/config"
	"job-digest/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	noEmail  bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Refresh the hot-jobs shortlists and email the daily digest",
	Long: `Refresh every category's hot-jobs shortlist and email the digest.

Shortlists are sticky: a listing stays until its company appears in the
application tracker or it is removed with "report remove". Only then is the
job board queried to fill the slot.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.RunDigest(ctx, !noEmail, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&noEmail, "no-email", false, "Print the digest without sending it")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine, the environment may be set already.
		log.Debug().Msg("No .env file found")
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return nil
}

// withApp builds the app for one command and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
