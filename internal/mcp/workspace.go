package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/testrig/internal/config"
	"github.com/deixis/testrig/internal/fixture"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct {
	Directory string `json:"directory,omitempty" jsonschema:"tests root relative to the workspace. Defaults to the workspace."`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"also list bundles in subdirectories"`
}

func (h *handler) workspaceHandler(ctx context.Context, req *mcp.CallToolRequest, params workspaceParams) (*mcp.CallToolResult, any, error) {
	workspace, file := h.snapshot()
	var b strings.Builder

	fmt.Fprintf(&b, "Workspace: %s\n", workspace)
	if loaded, err := config.Load(workspace); err == nil && loaded.Path != "" {
		fmt.Fprintf(&b, "Config: %s\n", loaded.Path)
	} else {
		fmt.Fprintln(&b, "Config: (defaults)")
	}
	if file == nil {
		file = &config.Config{}
	}
	fmt.Fprintf(&b, "Timeout: %s\n", file.Timeout())
	for _, exe := range []struct{ label, name string }{
		{"Parser", config.DefaultParser},
		{"Interpreter", config.DefaultInterpreter},
	} {
		path := inWorkspace(workspace, exe.name, "")
		state := "found"
		if !fixture.Exists(path) {
			state = "missing"
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", exe.label, path, state)
	}
	fmt.Fprintln(&b)

	r := &fixture.Resolver{
		Root:      inWorkspace(workspace, params.Directory, "."),
		Recursive: params.Recursive,
		IRSuffix:  file.IRSuffix(),
	}
	names, err := r.List()
	if err != nil {
		return errorResult(err.Error())
	}
	fmt.Fprintf(&b, "Bundles (%d):\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", name)
	}

	return textResult(b.String())
}
