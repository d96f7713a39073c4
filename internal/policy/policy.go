// Package policy decides which stages run for a bundle and which artifact
// feeds the interpreter, independent of any process execution.
package policy

import (
	"fmt"
	"strings"
)

// Mode selects the stages a run exercises.
type Mode int

const (
	// Both runs the parser and then the interpreter on the parser output.
	Both Mode = iota
	// ParseOnly runs only the parser.
	ParseOnly
	// InterpretOnly runs only the interpreter, directly on the source file.
	InterpretOnly
)

func (m Mode) String() string {
	switch m {
	case ParseOnly:
		return "parse-only"
	case InterpretOnly:
		return "int-only"
	case Both:
		return "both"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText lets modes appear by name in JSON reports.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts the names produced by String, plus a few aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return Both, nil
	case "parse-only", "parse":
		return ParseOnly, nil
	case "int-only", "interpret-only", "interpret":
		return InterpretOnly, nil
	}
	return Both, fmt.Errorf("unknown mode %q (want both, parse-only or int-only)", s)
}

// Source identifies the artifact handed to the interpreter.
type Source int

const (
	// NoSource means the interpreter does not run.
	NoSource Source = iota
	// FromSource feeds the bundle's .src file directly.
	FromSource
	// FromIR feeds the parser's intermediate representation.
	FromIR
)

// Plan is the per-bundle stage decision.
type Plan struct {
	Parse     bool
	Interpret bool
	Input     Source
}

// Decide maps a mode to its stage plan.
//
//	mode           parse  interpret  interpreter input
//	ParseOnly      yes    no         -
//	InterpretOnly  no     yes        source file
//	Both           yes    yes*       IR from the parse stage
//
// * only when the parse stage produced or reused an IR file, see Plan.InterpretReady.
func Decide(m Mode) Plan {
	switch m {
	case ParseOnly:
		return Plan{Parse: true}
	case InterpretOnly:
		return Plan{Interpret: true, Input: FromSource}
	default:
		return Plan{Parse: true, Interpret: true, Input: FromIR}
	}
}

// InterpretReady reports whether the interpret stage may start given the
// state left behind by the parse stage. irReady is true when the parser
// exited 0 and the IR file exists.
func (p Plan) InterpretReady(irReady bool) bool {
	if !p.Interpret {
		return false
	}
	if p.Input == FromIR {
		return irReady
	}
	return true
}

// InterpretArtifact picks the interpreter's source argument.
func (p Plan) InterpretArtifact(sourcePath, irPath string) string {
	switch p.Input {
	case FromIR:
		return irPath
	case FromSource:
		return sourcePath
	}
	return ""
}
