package mcpserver

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"reusability-token/internal/ids"
	"reusability-token/internal/report"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
	defaultTop       = 10
)

func clampPagination(limit, offset, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Server) registerRunTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_run_summary",
			mcp.WithDescription("Run id, seed, parameters, customer census and outcome of the current run"),
		),
		s.handleGetRunSummary,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_latest_day",
			mcp.WithDescription("Most recent day snapshot with the customers holding the most reputation"),
			mcp.WithNumber("top", mcp.Description("How many top customers to include, default 10")),
		),
		s.handleGetLatestDay,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_day",
			mcp.WithDescription("Snapshot of one simulated day"),
			mcp.WithNumber("day", mcp.Required(), mcp.Description("Day index, starting at 0")),
		),
		s.handleGetDay,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_days",
			mcp.WithDescription("Recorded day snapshots with pagination"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 50, max 500")),
			mcp.WithNumber("offset", mcp.Description("Page offset, default 0")),
		),
		s.handleListDays,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_blacklisted_shops",
			mcp.WithDescription("Shops blacklisted for missed dues as of the latest day"),
		),
		s.handleListBlacklistedShops,
	)
}

func (s *Server) handleGetRunSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := s.runs.Summary()
	if err != nil {
		return mapLookupError(err), nil
	}
	return toolResult(summary), nil
}

func (s *Server) handleGetLatestDay(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top := request.GetInt("top", defaultTop)
	if top < 0 {
		return toolError("invalid_request", "top must be >= 0"), nil
	}
	d, err := s.runs.Latest()
	if err != nil {
		return mapLookupError(err), nil
	}
	return toolResult(map[string]any{
		"day":                   d,
		"top_customers":         d.TopCustomers(top),
		"shop_reputation_total": d.TotalShopReputation(),
	}), nil
}

func (s *Server) handleGetDay(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := request.GetInt("day", -1)
	if day < 0 {
		return toolError("invalid_request", "day is required and must be >= 0"), nil
	}
	d, err := s.runs.Day(day)
	if err != nil {
		return mapLookupError(err), nil
	}
	return toolResult(d), nil
}

func (s *Server) handleListDays(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, offset := clampPagination(request.GetInt("limit", defaultPageLimit), request.GetInt("offset", 0), maxPageLimit)
	items, total := s.runs.Days(limit, offset)
	return toolResult(map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}), nil
}

func (s *Server) handleListBlacklistedShops(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.runs.Latest()
	if errors.Is(err, report.ErrDayNotFound) {
		return toolResult(map[string]any{"shops": []ids.Address{}}), nil
	}
	if err != nil {
		return mapLookupError(err), nil
	}
	shops := d.Blacklisted
	if shops == nil {
		shops = []ids.Address{}
	}
	return toolResult(map[string]any{"day": d.Day, "shops": shops}), nil
}
