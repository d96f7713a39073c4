// Package report holds the structured outcome of a harness run, persists
// it for later drill-down and renders it as HTML, JSON or text.
package report

import (
	"strings"
	"time"

	"github.com/deixis/testrig/internal/config"
)

// Status is the state of one stage of one bundle.
type Status string

const (
	Pass        Status = "pass"
	Fail        Status = "fail"
	Skipped     Status = "skipped"     // not run by policy or because an earlier stage gave nothing to run on
	Unavailable Status = "unavailable" // executable missing on disk
	Error       Status = "error"       // child process could not be started
	Timeout     Status = "timeout"     // child process killed after the timeout
)

// Failed reports whether s counts against its bundle.
func (s Status) Failed() bool {
	return s == Fail || s == Error || s == Timeout
}

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// StageResult is the outcome of the parse or interpret stage of a bundle.
type StageResult struct {
	Status       Status `json:"status"`
	ActualCode   *int   `json:"actual_code,omitempty"` // nil when the process did not finish
	ExpectedCode int    `json:"expected_code"`
	Matched      bool   `json:"matched"`
	Detail       string `json:"detail,omitempty"`
}

// Ran reports whether the stage's process ran to completion.
func (s *StageResult) Ran() bool {
	return s != nil && s.ActualCode != nil
}

// OutcomeRecord is everything known about one bundle after a run.
type OutcomeRecord struct {
	Name         string `json:"name"` // bundle path relative to the tests root, no suffix
	Source       string `json:"source"`
	ExpectedCode string `json:"expected_code"` // trimmed .rc content
	Error        string `json:"error,omitempty"`

	Parse     *StageResult `json:"parse,omitempty"`
	Interpret *StageResult `json:"interpret,omitempty"`

	// Output fields are meaningful only when OutputChecked is set,
	// which happens only when the interpret stage ran.
	OutputChecked  bool   `json:"output_checked"`
	OutputMatch    bool   `json:"output_match"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	ActualOutput   string `json:"actual_output,omitempty"`
}

// Passed reports whether the bundle has no failing stage, at least one
// stage that ran to completion and, when the output was compared,
// matching output. A bundle whose stages were all skipped or unavailable
// tested nothing and does not pass.
func (o *OutcomeRecord) Passed() bool {
	if o.Error != "" {
		return false
	}
	ran := false
	for _, s := range []*StageResult{o.Parse, o.Interpret} {
		if s != nil && s.Status.Failed() {
			return false
		}
		ran = ran || s.Ran()
	}
	if !ran {
		return false
	}
	if o.OutputChecked && !o.OutputMatch {
		return false
	}
	return true
}

// RunResult is the ordered list of outcomes for one run.
type RunResult struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration_ns"`
	Config    config.RunConfig `json:"config"`
	Warnings  []string         `json:"warnings,omitempty"`
	Outcomes  []OutcomeRecord  `json:"outcomes"`

	// Ephemeral lists files the run created because they were missing.
	// Cleaned is set when they were deleted again at the end of the run.
	Ephemeral []string `json:"ephemeral,omitempty"`
	Cleaned   bool     `json:"cleaned"`
}

// Summary counts bundles by verdict.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summary tallies the run's outcomes.
func (r *RunResult) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for i := range r.Outcomes {
		if r.Outcomes[i].Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// Lookup returns the outcomes for a bundle name. A name ending in "/"
// (or naming a directory of bundles) selects every bundle below it;
// an empty name selects every failed bundle.
func Lookup(r *RunResult, name string) []OutcomeRecord {
	var out []OutcomeRecord
	name = strings.TrimPrefix(name, "./")
	for _, o := range r.Outcomes {
		switch {
		case name == "":
			if !o.Passed() {
				out = append(out, o)
			}
		case o.Name == name, strings.HasPrefix(o.Name, strings.TrimSuffix(name, "/")+"/"):
			out = append(out, o)
		}
	}
	return out
}
