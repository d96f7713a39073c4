package mcp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/deixis/testrig/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type reportParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from a testrig_run result"`
	Format string `json:"format,omitempty" jsonschema:"html (default), json or text"`
}

func (h *handler) reportHandler(ctx context.Context, req *mcp.CallToolRequest, params reportParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	format, err := report.ParseFormat(params.Format)
	if err != nil {
		return errorResult(err.Error())
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	var b bytes.Buffer
	if err := report.NewRenderer(format, false).Render(&b, result); err != nil {
		return errorResult(fmt.Sprintf("rendering %s report: %v", format, err))
	}
	return textResult(b.String())
}
