package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/mark3labs/mcp-go/mcp"
)

type toolHandler struct {
	lb Leaderboard
}

type rankResult struct {
	Username string `json:"username"`
	ranking.Summary
}

type leaderboardResult struct {
	Entries []leaderboard.Entry `json:"entries"`
	Count   int                 `json:"count"`
}

func (h *toolHandler) handleGetRank(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := request.GetString("username", "")
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	result, err := h.lb.GetRank(ctx, username)
	if err != nil {
		return toolError("rank lookup failed", err), nil
	}
	return jsonResult(rankResult{Username: username, Summary: result.Summary()})
}

func (h *toolHandler) handleGetDistribution(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := h.lb.GetDistribution(ctx)
	if err != nil {
		return toolError("distribution unavailable", err), nil
	}
	return jsonResult(snap)
}

func (h *toolHandler) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters := leaderboard.Filters{
		Language:     request.GetString("language", ""),
		Tier:         request.GetString("tier", ""),
		SortBy:       request.GetString("sort_by", ""),
		MinImpact:    int64(request.GetInt("min_impact", 0)),
		MinStars:     int64(request.GetInt("min_stars", 0)),
		MinFollowers: int64(request.GetInt("min_followers", 0)),
		Limit:        request.GetInt("limit", 0),
	}

	entries, err := h.lb.QueryTopN(ctx, filters)
	if err != nil {
		return toolError("leaderboard query failed", err), nil
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return jsonResult(leaderboardResult{Entries: entries, Count: len(entries)})
}

func toolError(prefix string, err error) *mcp.CallToolResult {
	appErr := apperrors.ToAppError(err)
	return mcp.NewToolResultError(fmt.Sprintf("%s (%s): %s", prefix, appErr.Category, appErr.Msg))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
