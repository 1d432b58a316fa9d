package main

import (
	"context"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/spf13/cobra"
)

var (
	lbFilters   leaderboard.Filters
	lbLanguages bool
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"lb", "top"},
	Short:   "List the top stored users",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := newWriter()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if lbLanguages {
				langs, err := a.Leaderboard.AvailableLanguages(ctx)
				if err != nil {
					return err
				}
				return w.Languages(langs)
			}

			entries, err := a.Leaderboard.QueryTopN(ctx, lbFilters)
			if err != nil {
				return err
			}
			return w.Leaderboard(entries)
		})
	},
}

func init() {
	f := leaderboardCmd.Flags()
	f.StringVar(&lbFilters.Language, "language", "", "Dominant language")
	f.StringVar(&lbFilters.Tier, "tier", "", "Platinum, Gold, Silver, Bronze or Iron")
	f.StringVar(&lbFilters.SortBy, "sort-by", "", "impact_index, total_stars, followers or total_forks")
	f.Int64Var(&lbFilters.MinImpact, "min-impact", 0, "Minimum impact index")
	f.Int64Var(&lbFilters.MinStars, "min-stars", 0, "Minimum total stars")
	f.Int64Var(&lbFilters.MinFollowers, "min-followers", 0, "Minimum followers")
	f.IntVarP(&lbFilters.Limit, "limit", "l", leaderboard.DefaultLimit, "Number of entries (1-100)")
	f.BoolVar(&lbLanguages, "languages", false, "List the languages on the board instead")
	rootCmd.AddCommand(leaderboardCmd)
}
