// Package mcp exposes rank, distribution and leaderboard reads as Model
// Context Protocol tools over stdio.
package mcp

import (
	"context"

	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Leaderboard is the read side of the leaderboard gateway.
type Leaderboard interface {
	GetRank(ctx context.Context, username string) (ranking.Result, error)
	GetDistribution(ctx context.Context) (*distribution.Snapshot, error)
	QueryTopN(ctx context.Context, filters leaderboard.Filters) ([]leaderboard.Entry, error)
}

// NewMCPServer registers the tools without starting the transport.
func NewMCPServer(lb Leaderboard, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"AuraMeter",
		version,
		server.WithLogging(),
		server.WithToolCapabilities(false),
	)

	h := &toolHandler{lb: lb}

	s.AddTool(mcp.NewTool("get_rank",
		mcp.WithDescription("Resolve the rank and percentile of a stored GitHub user by impact index. Small populations are counted exactly; larger ones are estimated."),
		mcp.WithString("username", mcp.Description("GitHub login."), mcp.Required()),
	), h.handleGetRank)

	s.AddTool(mcp.NewTool("get_distribution",
		mcp.WithDescription("Summary statistics and percentile cut points of the stored impact index population."),
	), h.handleGetDistribution)

	s.AddTool(mcp.NewTool("get_leaderboard",
		mcp.WithDescription("Top stored users, optionally filtered by language, tier and thresholds."),
		mcp.WithString("language", mcp.Description("Dominant language, e.g. 'Go'.")),
		mcp.WithString("tier", mcp.Description("Tier badge."), mcp.Enum("Platinum", "Gold", "Silver", "Bronze", "Iron")),
		mcp.WithString("sort_by", mcp.Description("Sort column. Defaults to impact_index."), mcp.Enum("impact_index", "total_stars", "followers", "total_forks")),
		mcp.WithNumber("min_impact", mcp.Description("Minimum impact index.")),
		mcp.WithNumber("min_stars", mcp.Description("Minimum total stars.")),
		mcp.WithNumber("min_followers", mcp.Description("Minimum followers.")),
		mcp.WithNumber("limit", mcp.Description("Number of entries, 1 to 100. Defaults to 50.")),
	), h.handleGetLeaderboard)

	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(lb Leaderboard, version string) error {
	return server.ServeStdio(NewMCPServer(lb, version))
}
