package config

import (
	"fmt"
	"time"

	"github.com/deixis/testrig/internal/policy"
)

// Default executable names, resolved relative to the working directory.
const (
	DefaultParser      = "parse"
	DefaultInterpreter = "interpret"
)

// Options are the run settings chosen on the command line (or by an MCP
// client). Empty strings and false mean "not given".
type Options struct {
	Directory   string
	Recursive   bool
	ParseScript string
	IntScript   string
	ParseOnly   bool
	IntOnly     bool
	NoCleanup   bool
	Timeout     time.Duration // overrides the file when > 0
}

// RunConfig is the fully resolved configuration consumed by the engine.
type RunConfig struct {
	TestsRoot             string      `json:"tests_root"`
	Recursive             bool        `json:"recursive"`
	ParserExecutable      string      `json:"parser"`
	InterpreterExecutable string      `json:"interpreter"`
	Mode                  policy.Mode `json:"mode"`
	CleanupEphemeral      bool        `json:"cleanup"`

	Timeout             time.Duration `json:"-"`
	MaxOutput           int           `json:"-"`
	IRSuffix            string        `json:"-"`
	ParserLauncher      []string      `json:"-"`
	ParserArgs          []string      `json:"-"`
	InterpreterLauncher []string      `json:"-"`
	InterpreterArgs     []string      `json:"-"`
	SourceFlag          string        `json:"-"`
	InputFlag           string        `json:"-"`
}

// Resolve validates the options and merges them over file. A nil file
// means defaults. Incompatible selections yield a *ConfigError with
// StatusBadFlags.
func (o Options) Resolve(file *Config) (*RunConfig, error) {
	if file == nil {
		file = &Config{}
	}

	switch {
	case o.ParseScript != "" && o.IntOnly:
		return nil, &ConfigError{Reason: "--parse-script cannot be combined with --int-only", Status: StatusBadFlags}
	case o.IntScript != "" && o.ParseOnly:
		return nil, &ConfigError{Reason: "--int-script cannot be combined with --parse-only", Status: StatusBadFlags}
	case o.ParseOnly && o.IntOnly:
		return nil, &ConfigError{Reason: "--parse-only and --int-only are mutually exclusive", Status: StatusBadFlags}
	}

	rc := &RunConfig{
		TestsRoot:             o.Directory,
		Recursive:             o.Recursive,
		ParserExecutable:      o.ParseScript,
		InterpreterExecutable: o.IntScript,
		Mode:                  policy.Both,
		CleanupEphemeral:      file.Cleanup() && !o.NoCleanup,
		Timeout:               file.Timeout(),
		MaxOutput:             file.MaxOutputBytes(),
		IRSuffix:              file.IRSuffix(),
		ParserLauncher:        file.Parser.Launcher,
		ParserArgs:            file.Parser.Args,
		InterpreterLauncher:   file.Interpreter.Launcher,
		InterpreterArgs:       file.Interpreter.Args,
		SourceFlag:            file.SourceFlag(),
		InputFlag:             file.InputFlag(),
	}
	if reservedSuffix(rc.IRSuffix) {
		return nil, &ConfigError{Reason: fmt.Sprintf("ir_suffix %q is already used by bundle companions", rc.IRSuffix), Status: StatusBadFlags}
	}
	if rc.TestsRoot == "" {
		rc.TestsRoot = "."
	}
	if rc.ParserExecutable == "" {
		rc.ParserExecutable = DefaultParser
	}
	if rc.InterpreterExecutable == "" {
		rc.InterpreterExecutable = DefaultInterpreter
	}
	if o.ParseOnly {
		rc.Mode = policy.ParseOnly
	}
	if o.IntOnly {
		rc.Mode = policy.InterpretOnly
	}
	if o.Timeout > 0 {
		rc.Timeout = o.Timeout
	}
	return rc, nil
}

// reservedSuffix reports whether suffix names a companion file other than
// the intermediate representation.
func reservedSuffix(suffix string) bool {
	switch suffix {
	case "src", "rc", "in", "out", "txt":
		return true
	}
	return false
}

// ParserArgv returns the argv prefix that launches the parser.
func (c *RunConfig) ParserArgv() []string {
	argv := append([]string(nil), c.ParserLauncher...)
	argv = append(argv, c.ParserExecutable)
	return append(argv, c.ParserArgs...)
}

// InterpreterArgv returns the full interpreter argv for one bundle.
func (c *RunConfig) InterpreterArgv(source, input string) []string {
	argv := append([]string(nil), c.InterpreterLauncher...)
	argv = append(argv, c.InterpreterExecutable)
	argv = append(argv, c.InterpreterArgs...)
	return append(argv, c.SourceFlag+"="+source, c.InputFlag+"="+input)
}
