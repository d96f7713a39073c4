package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format names a report rendering.
type Format string

const (
	HTML Format = "html"
	JSON Format = "json"
	Text Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case HTML, JSON, Text:
		return f, nil
	case "":
		return HTML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want html, json or text)", s)
}

// Renderer turns a run into a report document.
type Renderer interface {
	Render(w io.Writer, r *RunResult) error
}

// NewRenderer returns the renderer for f. color only affects Text.
func NewRenderer(f Format, color bool) Renderer {
	switch f {
	case JSON:
		return jsonRenderer{}
	case Text:
		return textRenderer{color: color}
	default:
		return htmlRenderer{}
	}
}

type jsonRenderer struct{}

type jsonReport struct {
	*RunResult
	Summary Summary `json:"summary"`
}

func (jsonRenderer) Render(w io.Writer, r *RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{RunResult: r, Summary: r.Summary()})
}

// StageCell is the short text shown for a stage: the actual exit code
// when the process finished, otherwise its status.
func StageCell(s *StageResult) string {
	switch {
	case s == nil:
		return "-"
	case s.ActualCode != nil:
		return strconv.Itoa(*s.ActualCode)
	default:
		return string(s.Status)
	}
}

const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

type textRenderer struct {
	color bool
}

func (t textRenderer) paint(code, s string) string {
	if !t.color {
		return s
	}
	return code + s + ansiReset
}

func (t textRenderer) Render(w io.Writer, r *RunResult) error {
	var b strings.Builder

	for _, warn := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", warn)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintln(&b)
	}

	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		if o.Passed() {
			fmt.Fprintf(&b, "%s %s\n", t.paint(ansiGreen, "PASS"), o.Name)
		} else {
			fmt.Fprintf(&b, "%s %s\n", t.paint(ansiRed, "FAIL"), o.Name)
		}
		if o.Error != "" {
			fmt.Fprintf(&b, "  error: %s\n", o.Error)
		}
		t.stage(&b, "parse", o.Parse)
		t.stage(&b, "interpret", o.Interpret)
		if o.OutputChecked && !o.OutputMatch {
			fmt.Fprintln(&b, "  output mismatch")
			fmt.Fprintf(&b, "    expected: %q\n", o.ExpectedOutput)
			fmt.Fprintf(&b, "    actual:   %q\n", o.ActualOutput)
		}
	}

	s := r.Summary()
	fmt.Fprintf(&b, "\n%d tests, %d passed, %d failed\n", s.Total, s.Passed, s.Failed)
	_, err := io.WriteString(w, b.String())
	return err
}

func (t textRenderer) stage(b *strings.Builder, name string, s *StageResult) {
	if s == nil {
		return
	}
	line := fmt.Sprintf("  %-10s %-11s expected %d, got %s", name, s.Status, s.ExpectedCode, StageCell(s))
	if s.Detail != "" && s.Status != Fail {
		line += " (" + s.Detail + ")"
	}
	if s.Status == Skipped || s.Status == Unavailable {
		line = t.paint(ansiDim, line)
	}
	fmt.Fprintln(b, line)
}
