package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/deixis/testrig/internal/config"
	"github.com/deixis/testrig/internal/policy"
	"github.com/deixis/testrig/internal/remote"
	"github.com/deixis/testrig/internal/report"
	"github.com/deixis/testrig/internal/runner"
	"github.com/deixis/testrig/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	Directory   string `json:"directory,omitempty" jsonschema:"tests root, relative to the workspace or absolute, or a git URL (git+https://...). Defaults to the workspace."`
	Recursive   bool   `json:"recursive,omitempty" jsonschema:"also discover bundles in subdirectories"`
	Mode        string `json:"mode,omitempty" jsonschema:"both (default), parse-only or int-only"`
	Parser      string `json:"parser,omitempty" jsonschema:"parser executable. Defaults to ./parse in the workspace."`
	Interpreter string `json:"interpreter,omitempty" jsonschema:"interpreter executable. Defaults to ./interpret in the workspace."`
	Cleanup     *bool  `json:"cleanup,omitempty" jsonschema:"delete synthesized files after the run (default true)"`
	Ref         string `json:"ref,omitempty" jsonschema:"branch, tag or commit to check out when directory is a git URL"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	workspace, file := h.snapshot()

	mode, err := policy.ParseMode(params.Mode)
	if err != nil {
		return errorResult(err.Error())
	}

	fetcher := &remote.Fetcher{Ref: params.Ref}
	opts := config.Options{
		Directory:   params.Directory,
		Recursive:   params.Recursive,
		ParseScript: params.Parser,
		IntScript:   params.Interpreter,
		ParseOnly:   mode == policy.ParseOnly,
		IntOnly:     mode == policy.InterpretOnly,
		Timeout:     h.timeout,
	}
	if !fetcher.Match(opts.Directory) {
		opts.Directory = inWorkspace(workspace, params.Directory, ".")
	}
	if params.Cleanup != nil {
		opts.NoCleanup = !*params.Cleanup
	}

	cfg, err := opts.Resolve(file)
	if err != nil {
		return errorResult(err.Error())
	}
	// Both executables are checked in every mode, so both resolve
	// against the workspace once the flags have been validated.
	cfg.ParserExecutable = inWorkspace(workspace, params.Parser, config.DefaultParser)
	cfg.InterpreterExecutable = inWorkspace(workspace, params.Interpreter, config.DefaultInterpreter)

	engine := &workflow.Engine{
		Runner:  &runner.Runner{Dir: workspace, Timeout: cfg.Timeout},
		Fetcher: fetcher,
	}
	result, err := engine.Run(ctx, cfg)
	if err != nil {
		var se interface{ ExitStatus() int }
		if errors.As(err, &se) {
			return errorResult(fmt.Sprintf("run aborted (status %d): %v", se.ExitStatus(), err))
		}
		return errorResult(fmt.Sprintf("run aborted: %v", err))
	}

	// Save results for testrig_inspect.
	_ = h.store.Save(result)

	return textResult(formatRun(result))
}

// inWorkspace resolves a possibly relative path against the workspace,
// substituting def when path is empty.
func inWorkspace(workspace, path, def string) string {
	if path == "" {
		path = def
	}
	if filepath.IsAbs(path) || workspace == "" {
		return path
	}
	return filepath.Join(workspace, path)
}

func formatRun(result *report.RunResult) string {
	var b bytes.Buffer

	status := "PASS"
	if result.Summary().Failed > 0 {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Run: %s\n", result.ID)
	fmt.Fprintf(&b, "Mode: %s\n\n", result.Config.Mode)

	_ = report.NewRenderer(report.Text, false).Render(&b, result)

	if status == "FAIL" {
		fmt.Fprintf(&b, "\nInspect with testrig_inspect(run_id=%q, bundle=\"<name>\").\n", result.ID)
	}
	return b.String()
}
