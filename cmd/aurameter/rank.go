package main

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank <username>",
	Short: "Show where a stored user ranks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newWriter()
		if err != nil {
			return err
		}
		username := args[0]
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			start := time.Now()
			res, err := a.Leaderboard.GetRank(ctx, username)
			if err != nil {
				return err
			}
			s := res.Summary()
			a.Logger.RankLogger(username, string(s.Tier), s.Rank, s.Percentile, time.Since(start))
			return w.Rank(username, s)
		})
	},
}

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Show the impact index distribution of the stored population",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := newWriter()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			snap, err := a.Leaderboard.GetDistribution(ctx)
			if err != nil {
				return err
			}
			return w.Distribution(snap)
		})
	},
}

func init() {
	rootCmd.AddCommand(rankCmd, distributionCmd)
}
