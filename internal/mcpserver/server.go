// Package mcpserver exposes a run's reports as read-only MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"reusability-token/internal/report"
)

type Server struct {
	runs report.Reader

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(runs report.Reader) *Server {
	mcpSrv := server.NewMCPServer(
		"reusability-token",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		runs:       runs,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerRunTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"day://{day}",
			"simulation_day",
			mcp.WithTemplateDescription("Market snapshot at the end of a simulated day"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			day, err := strconv.Atoi(strings.TrimPrefix(raw, "day://"))
			if !strings.HasPrefix(raw, "day://") || err != nil {
				return nil, fmt.Errorf("invalid day uri %q", raw)
			}
			d, err := s.runs.Day(day)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(d)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
