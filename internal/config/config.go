// Package config loads the optional .testrig YAML file and resolves
// command-line options into a validated RunConfig.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-suite configuration file.
const FileName = ".testrig"

// Default values for runner configuration.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxOutput  = 64 << 10 // 64 KB
	DefaultIRSuffix   = "xml"
	DefaultSourceFlag = "--source"
	DefaultInputFlag  = "--input"
	DefaultFormat     = "html"
)

// Config holds the parsed .testrig configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int               `yaml:"version"`
	RawTimeout   string            `yaml:"timeout"`    // per child process, e.g. "10s"
	RawMaxOutput int               `yaml:"max_output"` // bytes of output copied into reports
	RawCleanup   *bool             `yaml:"cleanup"`    // delete synthesized files after the run
	RawIRSuffix  string            `yaml:"ir_suffix"`
	Parser       ParserConfig      `yaml:"parser"`
	Interpreter  InterpreterConfig `yaml:"interpreter"`
	Report       ReportConfig      `yaml:"report"`
}

// ParserConfig controls how the parser is invoked.
type ParserConfig struct {
	Launcher []string `yaml:"launcher"` // e.g. [php8.1]; the parser path is appended
	Args     []string `yaml:"args"`     // extra arguments after the parser path
}

// InterpreterConfig controls how the interpreter is invoked.
type InterpreterConfig struct {
	Launcher   []string `yaml:"launcher"` // e.g. [python3.10]
	Args       []string `yaml:"args"`
	SourceFlag string   `yaml:"source_flag"` // default --source
	InputFlag  string   `yaml:"input_flag"`  // default --input
}

// ReportConfig selects the default report format.
type ReportConfig struct {
	Format string `yaml:"format"` // html, json or text
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// Cleanup reports whether synthesized files are removed after a run.
func (c *Config) Cleanup() bool {
	if c.RawCleanup != nil {
		return *c.RawCleanup
	}
	return true
}

// IRSuffix returns the intermediate representation suffix without a dot.
func (c *Config) IRSuffix() string {
	if c.RawIRSuffix != "" {
		return trimDot(c.RawIRSuffix)
	}
	return DefaultIRSuffix
}

// SourceFlag returns the interpreter's source argument name.
func (c *Config) SourceFlag() string {
	if c.Interpreter.SourceFlag != "" {
		return c.Interpreter.SourceFlag
	}
	return DefaultSourceFlag
}

// InputFlag returns the interpreter's input argument name.
func (c *Config) InputFlag() string {
	if c.Interpreter.InputFlag != "" {
		return c.Interpreter.InputFlag
	}
	return DefaultInputFlag
}

// ReportFormat returns the configured report format or the default.
func (c *Config) ReportFormat() string {
	if c.Report.Format != "" {
		return c.Report.Format
	}
	return DefaultFormat
}

// LoadResult holds the parsed config and where it was found.
type LoadResult struct {
	Config *Config
	Path   string // empty when no .testrig file exists
}

// Load reads the .testrig file nearest to dir, walking upward until the
// filesystem root. If none exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// findConfig walks upward from dir looking for a .testrig file.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fs.ErrNotExist
		}
		dir = parent
	}
}

func trimDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}

// ConfigError reports unusable configuration. It aborts the run before
// any fixture is touched.
type ConfigError struct {
	Reason string
	Status int
}

// Exit statuses for configuration failures.
const (
	StatusBadFlags           = 10
	StatusExecutablesMissing = 11
)

func (e *ConfigError) Error() string { return e.Reason }

// ExitStatus is the process status used when this error aborts the run.
func (e *ConfigError) ExitStatus() int { return e.Status }

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
