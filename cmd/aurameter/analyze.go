package main

import (
	"context"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Fetch a GitHub user, store their entry and print the full report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		if err := leaderboard.ValidateUsername(username); err != nil {
			return err
		}
		w, err := newWriter()
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			profile, err := a.GitHub.FetchProfile(ctx, username)
			if err != nil {
				return err
			}
			entry, err := a.Leaderboard.AnalyzeAndStore(ctx, profile)
			if err != nil {
				return err
			}
			res, err := a.Leaderboard.GetRank(ctx, entry.Username)
			if err != nil {
				return err
			}
			return w.Analysis(entry, res.Summary(), a.Analyzer.Analyze(profile))
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
