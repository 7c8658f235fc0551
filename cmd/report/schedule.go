package main

import (
	"context"

	"github.com/spf13/cobra"

	"job-digest/internal/app"
	"job-digest/internal/scheduler"
)

var runNow bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Send the digest on the configured cron schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			skip, err := cfg.SkipDays()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			s := scheduler.New(cfg.Schedule.Cron, loc, skip, func(ctx context.Context) error {
				return a.RunDigest(ctx, true, nil)
			})
			if runNow {
				s.RunOnce(ctx)
			}
			return s.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "Also run once immediately")
}
