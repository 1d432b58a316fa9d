package main

import (
	"context"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve rank and leaderboard tools over MCP stdio",
	Long: `Launch a Model Context Protocol server on stdin/stdout exposing get_rank,
get_distribution and get_leaderboard. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			return mcp.ServeStdio(a.Leaderboard, version)
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
