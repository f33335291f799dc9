package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cistat/src/aggregate"
	"cistat/src/provider"
	"cistat/src/render"
)

// StatusFunc runs one refresh cycle for the given selectors.
type StatusFunc func(ctx context.Context, selectors []string, depth int) (aggregate.Snapshot, error)

// Server is the MCP server for cistat.
type Server struct {
	mcpServer *server.MCPServer
	store     SnapshotStore
	status    StatusFunc
	renderer  *render.Renderer
}

// NewServer creates a new MCP server backed by status.
func NewServer(version string, status StatusFunc) *Server {
	s := server.NewMCPServer(
		"cistat",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		store:     NewInMemoryStore(),
		status:    status,
		renderer:  render.New(),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	statusTool := mcp.NewTool("build_status",
		mcp.WithDescription("Fetch the latest CI build status per branch or pipeline. Groups that are failing, errored, running or stale are listed in full; passing groups are listed by name. Use get_group_history to see recent builds of one group."),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("One or more space separated project selectors, e.g. circleci:gh/org/repo@main github:owner/repo"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Builds of history kept per group (default: 5)"),
		),
	)

	historyTool := mcp.NewTool("get_group_history",
		mcp.WithDescription("Get the recent builds of one group from an earlier build_status response."),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Request ID from build_status response"),
		),
		mcp.WithString("group",
			mcp.Required(),
			mcp.Description("Group name from the build_status response"),
		),
	)

	s.mcpServer.AddTool(statusTool, s.handleBuildStatus)
	s.mcpServer.AddTool(historyTool, s.handleGroupHistory)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleBuildStatus handles the build_status tool call.
func (s *Server) handleBuildStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selectors := strings.Fields(strings.ReplaceAll(request.GetString("selector", ""), ",", " "))
	if len(selectors) == 0 {
		return mcp.NewToolResultError("selector parameter is required"), nil
	}
	depth := request.GetInt("depth", aggregate.DefaultDepth)

	snap, err := s.status(ctx, selectors, depth)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", provider.WrapError(err))), nil
	}

	requestID := uuid.NewString()
	s.store.Store(requestID, snap)

	manifest := ToManifest(requestID, snap, s.renderer.Render(snap))
	jsonBytes, err := json.Marshal(manifest)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleGroupHistory handles the get_group_history tool call.
func (s *Server) handleGroupHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := request.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id parameter is required"), nil
	}

	name := request.GetString("group", "")
	if name == "" {
		return mcp.NewToolResultError("group parameter is required"), nil
	}

	group, found := s.store.Group(requestID, name)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("group not found: request_id=%s, group=%s", requestID, name)), nil
	}

	jsonBytes, err := json.Marshal(group)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal group: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}
