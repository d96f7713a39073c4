package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/deixis/testrig/internal/fixture"
	"github.com/deixis/testrig/internal/report"
	"github.com/deixis/testrig/internal/runner"
)

// parse runs the parser with the source file on stdin. Its stdout becomes
// the IR file unless one is already present, in which case the existing
// file is reused and stdout is discarded. The second result reports
// whether the interpreter may consume the IR.
func (e *Engine) parse(ctx context.Context, st *run, b fixture.Bundle) (*report.StageResult, bool) {
	sr := &report.StageResult{ExpectedCode: b.ExpectedCode}
	if !st.parserOK {
		sr.Status = report.Unavailable
		sr.Detail = ErrExecutableMissing{Path: st.cfg.ParserExecutable}.Error()
		return sr, false
	}

	cmd := runner.Command{Argv: st.cfg.ParserArgv(), Stdin: b.SourcePath}
	if !fixture.Exists(b.IRPath) {
		cmd.Stdout = b.IRPath
		st.ledger.Track(b.IRPath)
	}

	res, err := e.Runner.Run(ctx, cmd)
	if !stageFinished(sr, res, err, st.cfg.Timeout) {
		return sr, false
	}
	sr.Matched = MatchParse(*sr.ActualCode, b.ExpectedCode)
	setVerdict(sr)
	return sr, *sr.ActualCode == 0 && fixture.Exists(b.IRPath)
}

// interpret runs the interpreter on the artifact chosen by the plan and
// captures its stdout next to the bundle.
func (e *Engine) interpret(ctx context.Context, st *run, b fixture.Bundle) *report.StageResult {
	sr := &report.StageResult{ExpectedCode: b.ExpectedCode}
	if !st.interpreterOK {
		sr.Status = report.Unavailable
		sr.Detail = ErrExecutableMissing{Path: st.cfg.InterpreterExecutable}.Error()
		return sr
	}

	if !fixture.Exists(b.CapturedOutputPath) {
		st.ledger.Track(b.CapturedOutputPath)
	}
	source := st.plan.InterpretArtifact(b.SourcePath, b.IRPath)
	res, err := e.Runner.Run(ctx, runner.Command{
		Argv:   st.cfg.InterpreterArgv(source, b.InputPath),
		Stdout: b.CapturedOutputPath,
	})
	if !stageFinished(sr, res, err, st.cfg.Timeout) {
		return sr
	}
	sr.Matched = MatchInterpret(*sr.ActualCode, b.ExpectedCode)
	setVerdict(sr)
	return sr
}

// stageFinished records a start failure or timeout on sr and reports
// whether the process ran to completion.
func stageFinished(sr *report.StageResult, res *runner.Result, err error, timeout time.Duration) bool {
	switch {
	case err != nil:
		sr.Status = report.Error
		sr.Detail = err.Error()
		return false
	case res.TimedOut:
		sr.Status = report.Timeout
		sr.Detail = fmt.Sprintf("killed after %s", timeout)
		return false
	}
	code := res.ExitCode
	sr.ActualCode = &code
	return true
}

func setVerdict(sr *report.StageResult) {
	if sr.Matched {
		sr.Status = report.Pass
		return
	}
	sr.Status = report.Fail
	sr.Detail = fmt.Sprintf("expected %d, got %d", sr.ExpectedCode, *sr.ActualCode)
}
