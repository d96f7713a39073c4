// Package mcp provides the testrig MCP server, registering the run,
// inspect and report tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/testrig"
	"github.com/deixis/testrig/internal/config"
	"github.com/deixis/testrig/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu        sync.Mutex
	file      *config.Config
	workspace string

	store   report.Store
	timeout time.Duration // overrides the file's per-process timeout when > 0
}

// NewServer creates an MCP server with all testrig tools registered.
// Relative tests roots and executables are resolved against workspace.
func NewServer(cfg *config.Config, store report.Store, workspace string, opts ...ServerOption) *mcp.Server {
	h := &handler{
		file:      cfg,
		workspace: workspace,
		store:     store,
	}
	for _, o := range opts {
		o(h)
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "testrig", Version: testrig.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "testrig_workspace",
		Description: "Summarise the workspace: config file, parser and interpreter presence, and the bundles a run would pick up.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "testrig_run",
		Description: `Run the parser and/or interpreter over every .src bundle in a tests directory.

Missing .rc, .in and .out companions are synthesized (rc defaults to 0). Each bundle's exit codes
and trimmed output are compared with the expected ones. Results are stored for drill-down via
testrig_inspect and testrig_report.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "testrig_inspect",
		Description: `Show the full outcome of bundles from a testrig_run result.

Use the run_id and a bundle name as printed in the run summary (e.g. "sub/add"). A directory name
selects every bundle below it. Omit bundle to list every failed bundle.`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "testrig_report",
		Description: "Render a stored run as an html, json or text report.",
	}, h.reportHandler)

	return s
}

// ServerOption configures the testrig MCP server.
type ServerOption func(*handler)

// WithTimeout overrides the per-process timeout from the config file.
func WithTimeout(d time.Duration) ServerOption {
	return func(h *handler) {
		h.timeout = d
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and, when a
// file root is returned, makes it the workspace and reloads its config.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.workspace = workspace
	h.file = loaded.Config
}

// snapshot returns the current workspace and config file.
func (h *handler) snapshot() (string, *config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.workspace, h.file
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
