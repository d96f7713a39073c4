// Package workflow drives a harness run: it discovers bundles, runs the
// parse and interpret stages for each one and evaluates the results. It
// is consumed by both the MCP server and the CLI.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/deixis/testrig/internal/config"
	"github.com/deixis/testrig/internal/fixture"
	"github.com/deixis/testrig/internal/policy"
	"github.com/deixis/testrig/internal/report"
	"github.com/deixis/testrig/internal/runner"
	"github.com/google/uuid"
)

// CommandRunner executes one child process.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, c runner.Command) (*runner.Result, error)
}

// SuiteFetcher materializes a tests root that does not live on the local
// filesystem. Implemented by remote.Fetcher.
type SuiteFetcher interface {
	Match(root string) bool
	Fetch(ctx context.Context, root string) (dir string, release func(), err error)
}

// Engine holds shared dependencies for harness runs.
type Engine struct {
	Runner  CommandRunner
	Fetcher SuiteFetcher // optional
}

// Warnings recorded when one of the executables is missing.
const (
	WarnParserMissing      = "Parser file not found! Proceeding anyway..."
	WarnInterpreterMissing = "Interpreter file not found! Proceeding anyway..."
)

// ErrExecutableMissing is reported as the detail of a stage whose
// executable does not exist.
type ErrExecutableMissing struct {
	Path string
}

func (e ErrExecutableMissing) Error() string {
	return fmt.Sprintf("executable missing: %s", e.Path)
}

// run is the per-run state shared by every bundle.
type run struct {
	cfg    *config.RunConfig
	plan   policy.Plan
	ledger *fixture.Ledger

	parserOK      bool
	interpreterOK bool
}

// Run executes a full harness run. Outcomes are returned in bundle order.
// A missing parser and interpreter, an unusable tests root and
// cancellation of ctx abort the run with an error; everything that goes
// wrong inside a single bundle is recorded in its outcome instead.
func (e *Engine) Run(ctx context.Context, cfg *config.RunConfig) (*report.RunResult, error) {
	start := time.Now()
	rr := &report.RunResult{
		ID:        uuid.New().String(),
		StartedAt: start,
		Config:    *cfg,
	}

	st := &run{
		cfg:    cfg,
		plan:   policy.Decide(cfg.Mode),
		ledger: fixture.NewLedger(),
	}

	parser, parserOK := executable(cfg.ParserExecutable, cfg.ParserLauncher)
	interpreter, interpreterOK := executable(cfg.InterpreterExecutable, cfg.InterpreterLauncher)
	if !parserOK && !interpreterOK {
		return nil, &config.ConfigError{
			Reason: fmt.Sprintf("neither parser %q nor interpreter %q exists", cfg.ParserExecutable, cfg.InterpreterExecutable),
			Status: config.StatusExecutablesMissing,
		}
	}
	if !parserOK {
		rr.Warnings = append(rr.Warnings, WarnParserMissing)
	}
	if !interpreterOK {
		rr.Warnings = append(rr.Warnings, WarnInterpreterMissing)
	}
	resolved := *cfg
	resolved.ParserExecutable = parser
	resolved.InterpreterExecutable = interpreter
	st.cfg = &resolved
	st.parserOK = parserOK
	st.interpreterOK = interpreterOK

	root := cfg.TestsRoot
	if e.Fetcher != nil && e.Fetcher.Match(root) {
		dir, release, err := e.Fetcher.Fetch(ctx, root)
		if err != nil {
			return nil, &fixture.DiscoveryError{Root: root, Err: err}
		}
		defer release()
		root = dir
	}

	resolver := &fixture.Resolver{
		Root:      root,
		Recursive: cfg.Recursive,
		IRSuffix:  cfg.IRSuffix,
		Ledger:    st.ledger,
	}
	bundles, err := resolver.Resolve()
	if cfg.CleanupEphemeral {
		defer func() {
			rr.Ephemeral = st.ledger.Paths()
			if err := st.ledger.Cleanup(); err != nil {
				rr.Warnings = append(rr.Warnings, fmt.Sprintf("cleanup: %v", err))
				return
			}
			rr.Cleaned = true
		}()
	}
	if err != nil {
		return nil, err
	}

	rr.Outcomes = make([]report.OutcomeRecord, 0, len(bundles))
	for _, b := range bundles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		rr.Outcomes = append(rr.Outcomes, e.runBundle(ctx, st, b))
	}

	if !cfg.CleanupEphemeral {
		rr.Ephemeral = st.ledger.Paths()
	}
	rr.Duration = time.Since(start)
	return rr, nil
}

// executable reports whether path exists and returns the form to exec.
// Without a launcher the path is made absolute so that a bare name such
// as "parse" refers to the working directory rather than $PATH.
func executable(path string, launcher []string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	if len(launcher) > 0 {
		return path, true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, true
	}
	return abs, true
}

func (e *Engine) runBundle(ctx context.Context, st *run, b fixture.Bundle) report.OutcomeRecord {
	o := report.OutcomeRecord{
		Name:         b.Name,
		Source:       b.SourcePath,
		ExpectedCode: b.RawCode,
	}

	if b.CodeErr != nil {
		o.Error = b.CodeErr.Error()
		if st.plan.Parse {
			o.Parse = &report.StageResult{Status: report.Skipped, Detail: "invalid return code"}
		}
		if st.plan.Interpret {
			o.Interpret = &report.StageResult{Status: report.Skipped, Detail: "invalid return code"}
		}
		return o
	}

	irReady := false
	if st.plan.Parse {
		o.Parse, irReady = e.parse(ctx, st, b)
	}
	if !st.plan.Interpret {
		return o
	}
	if !st.plan.InterpretReady(irReady) {
		o.Interpret = &report.StageResult{
			Status:       report.Skipped,
			ExpectedCode: b.ExpectedCode,
			Detail:       "no intermediate representation",
		}
		return o
	}

	o.Interpret = e.interpret(ctx, st, b)
	if o.Interpret.Ran() {
		compareOutput(&o, b, st.cfg.MaxOutput)
	}
	return o
}
