package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"job-digest/internal/app"
)

var hotCmd = &cobra.Command{
	Use:   "hot",
	Short: "Refresh the shortlists and print them, without sending email",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return a.RunDigest(ctx, false, cmd.OutOrStdout())
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored shortlists without querying any job board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Service.List(ctx)
			if err != nil {
				return err
			}
			return a.Print(ctx, cmd.OutOrStdout(), res)
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [category]",
	Short: "Clear and refetch one category, or every category when none is given",
	Long: `Clear a category's shortlist and refill it from the job boards.

The blocklist is kept. Without an argument every configured category is
refetched in a single run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if len(args) == 0 {
				res, err := a.Service.ForceRefreshAll(ctx)
				if err != nil {
					return err
				}
				return a.Print(ctx, cmd.OutOrStdout(), res)
			}

			res, err := a.Service.RefreshOne(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.Print(ctx, cmd.OutOrStdout(), res); err != nil {
				return err
			}
			return res.Failed[args[0]]
		})
	},
}

var removeCategory string

var removeCmd = &cobra.Command{
	Use:   "remove <company> <title>",
	Short: "Drop a listing and never show that company and title again",
	Long: `Drop a listing from the shortlists and add it to the blocklist.

Without --category the listing is removed from every category. The freed
slot is filled on the next refresh.`,
	Example: `  report remove "Acme" "Senior Java Developer"
  report remove "Acme" "Product Owner" --category "Product Owner"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Service.Remove(ctx, removeCategory, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Removed) == 0 {
				fmt.Fprintf(out, "%s / %s was not shortlisted; blocklisted\n", args[0], args[1])
				return nil
			}
			for _, c := range res.Removed {
				fmt.Fprintf(out, "Removed %s / %s from %s\n", args[0], args[1], c)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(hotCmd, listCmd, refreshCmd, removeCmd)
	removeCmd.Flags().StringVar(&removeCategory, "category", "", "Only remove from this category")
}
