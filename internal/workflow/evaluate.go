package workflow

import (
	"bytes"
	"fmt"
	"os"

	"github.com/deixis/testrig/internal/fixture"
	"github.com/deixis/testrig/internal/report"
)

// MatchParse reports whether the parser's exit code is acceptable. A zero
// exit code always passes, even when a non-zero code was expected.
func MatchParse(actual, expected int) bool {
	return actual == expected || actual == 0
}

// MatchInterpret reports whether the interpreter's exit code is the
// expected one.
func MatchInterpret(actual, expected int) bool {
	return actual == expected
}

// MatchOutput compares expected and actual output after trimming leading
// and trailing whitespace from both.
func MatchOutput(expected, actual []byte) bool {
	return bytes.Equal(bytes.TrimSpace(expected), bytes.TrimSpace(actual))
}

// compareOutput fills the output fields of o from the bundle's .out and
// captured .txt files. The files are compared whole; only the copies kept
// in the record are cut to limit bytes.
func compareOutput(o *report.OutcomeRecord, b fixture.Bundle, limit int) {
	o.OutputChecked = true
	expected, err := readOutput(b.ExpectedOutputPath)
	if err != nil {
		o.Error = err.Error()
		return
	}
	actual, err := readOutput(b.CapturedOutputPath)
	if err != nil {
		o.Error = err.Error()
		return
	}
	o.OutputMatch = MatchOutput(expected, actual)
	o.ExpectedOutput = string(truncate(expected, limit))
	o.ActualOutput = string(truncate(actual, limit))
}

func readOutput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading output: %w", err)
	}
	return data, nil
}

func truncate(data []byte, limit int) []byte {
	if limit > 0 && len(data) > limit {
		return data[:limit]
	}
	return data
}
