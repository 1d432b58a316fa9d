package main

import (
	"context"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/spf13/cobra"
)

var collectTarget int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Sample GitHub users across star bands into the store",
	Long: `Search GitHub repositories band by band (elite down to beginner), fetch and
score every owner found and store them. Interrupting the command stops the run
and keeps what was stored so far.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w, err := newWriter()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Collector.Run(ctx, collectTarget)
			if err != nil {
				return err
			}
			a.LogCollection(res)
			return w.Collection(&res)
		})
	},
}

func init() {
	collectCmd.Flags().IntVarP(&collectTarget, "target", "n", 1000, "Number of users to add")
	rootCmd.AddCommand(collectCmd)
}
