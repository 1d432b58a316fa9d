package main

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/export"
	"github.com/spf13/cobra"
)

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored entry to a Parquet file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := export.WriteEntriesFile(ctx, a.Repo, exportPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d entries to %s\n", n, exportPath)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "out", "f", "leaderboard.parquet", "Output file")
	rootCmd.AddCommand(exportCmd)
}
