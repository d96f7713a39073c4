package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/testrig/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a testrig_run result"`
	Bundle string `json:"bundle,omitempty" jsonschema:"bundle name relative to the tests root without suffix (e.g. sub/add), or a directory of bundles. Empty selects every failed bundle."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	outcomes := report.Lookup(result, params.Bundle)
	if len(outcomes) == 0 {
		if params.Bundle == "" {
			return textResult(fmt.Sprintf("No failed bundles in run %s.", params.RunID))
		}
		return textResult(fmt.Sprintf("No bundle %s in run %s.", params.Bundle, params.RunID))
	}

	return textResult(formatInspectOutput(params.RunID, outcomes))
}

func formatInspectOutput(runID string, outcomes []report.OutcomeRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	for _, o := range outcomes {
		verdict := "PASS"
		if !o.Passed() {
			verdict = "FAIL"
		}
		fmt.Fprintf(&b, "\n%s: %s\n", o.Name, verdict)
		fmt.Fprintf(&b, "  source: %s\n", o.Source)
		fmt.Fprintf(&b, "  expected rc: %s\n", o.ExpectedCode)
		if o.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", o.Error)
		}
		writeStage(&b, "parse", o.Parse)
		writeStage(&b, "interpret", o.Interpret)
		if o.OutputChecked {
			match := "match"
			if !o.OutputMatch {
				match = "mismatch"
			}
			fmt.Fprintf(&b, "  output: %s\n", match)
			writeBlock(&b, "expected", o.ExpectedOutput)
			writeBlock(&b, "actual", o.ActualOutput)
		}
	}
	return b.String()
}

func writeStage(b *strings.Builder, name string, s *report.StageResult) {
	if s == nil {
		return
	}
	fmt.Fprintf(b, "  %s: %s", name, s.Status)
	if s.ActualCode != nil {
		fmt.Fprintf(b, " (rc %d)", *s.ActualCode)
	}
	if s.Detail != "" {
		fmt.Fprintf(b, ": %s", s.Detail)
	}
	fmt.Fprintln(b)
}

func writeBlock(b *strings.Builder, label, text string) {
	fmt.Fprintf(b, "  %s:\n", label)
	if text == "" {
		fmt.Fprintln(b, "    (empty)")
		return
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
