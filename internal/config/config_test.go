package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/testrig/internal/policy"
	"github.com/google/go-cmp/cmp"
)

func TestLoad_FromSuiteRoot(t *testing.T) {
	dir := t.TempDir()
	data := "version: 1\ntimeout: 30s\ncleanup: false\nir_suffix: .ast\ninterpreter:\n  launcher: [python3]\n  source_flag: --program\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q, want %q", res.Path, filepath.Join(dir, FileName))
	}
	cfg := res.Config
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
	if cfg.Cleanup() {
		t.Error("Cleanup() = true, want false")
	}
	if cfg.IRSuffix() != "ast" {
		t.Errorf("IRSuffix() = %q, want ast", cfg.IRSuffix())
	}
	if cfg.SourceFlag() != "--program" {
		t.Errorf("SourceFlag() = %q, want --program", cfg.SourceFlag())
	}
	if cfg.InputFlag() != DefaultInputFlag {
		t.Errorf("InputFlag() = %q, want %q", cfg.InputFlag(), DefaultInputFlag)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "tests", "parse")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Config.Version != 2 {
		t.Errorf("Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoFile(t *testing.T) {
	res, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := res.Config
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", cfg.Timeout(), DefaultTimeout)
	}
	if !cfg.Cleanup() {
		t.Error("Cleanup() = false, want true by default")
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", cfg.MaxOutputBytes(), DefaultMaxOutput)
	}
	if cfg.ReportFormat() != "html" {
		t.Errorf("ReportFormat() = %q, want html", cfg.ReportFormat())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("timeout: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestResolve_Defaults(t *testing.T) {
	rc, err := Options{}.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.TestsRoot != "." || rc.ParserExecutable != "parse" || rc.InterpreterExecutable != "interpret" {
		t.Errorf("defaults = %q %q %q", rc.TestsRoot, rc.ParserExecutable, rc.InterpreterExecutable)
	}
	if rc.Mode != policy.Both {
		t.Errorf("Mode = %s, want both", rc.Mode)
	}
	if !rc.CleanupEphemeral {
		t.Error("CleanupEphemeral = false, want true")
	}
}

func TestResolve_Modes(t *testing.T) {
	rc, err := Options{ParseOnly: true, ParseScript: "p"}.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.Mode != policy.ParseOnly {
		t.Errorf("Mode = %s, want parse-only", rc.Mode)
	}
	rc, err = Options{IntOnly: true, IntScript: "i"}.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.Mode != policy.InterpretOnly {
		t.Errorf("Mode = %s, want int-only", rc.Mode)
	}
}

func TestResolve_Incompatible(t *testing.T) {
	for name, o := range map[string]Options{
		"parse-script with int-only": {ParseScript: "p", IntOnly: true},
		"int-script with parse-only": {IntScript: "i", ParseOnly: true},
		"both only flags":            {ParseOnly: true, IntOnly: true},
	} {
		_, err := o.Resolve(nil)
		if !IsConfigError(err) {
			t.Errorf("%s: err = %v, want ConfigError", name, err)
			continue
		}
		if err.(*ConfigError).ExitStatus() != StatusBadFlags {
			t.Errorf("%s: status = %d, want %d", name, err.(*ConfigError).ExitStatus(), StatusBadFlags)
		}
	}
}

func TestResolve_IRSuffixClash(t *testing.T) {
	for _, suffix := range []string{"txt", ".out", "src", "rc", "in"} {
		_, err := Options{}.Resolve(&Config{RawIRSuffix: suffix})
		var ce *ConfigError
		if !errors.As(err, &ce) || ce.ExitStatus() != StatusBadFlags {
			t.Errorf("ir_suffix %q: err = %v, want ConfigError with status %d", suffix, err, StatusBadFlags)
		}
	}
	rc, err := Options{}.Resolve(&Config{RawIRSuffix: ".ir"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.IRSuffix != "ir" {
		t.Errorf("IRSuffix = %q, want ir", rc.IRSuffix)
	}
}

func TestResolve_FlagsOverrideFile(t *testing.T) {
	file := &Config{RawTimeout: "1m"}
	rc, err := Options{NoCleanup: true, Timeout: 5 * time.Second}.Resolve(file)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rc.CleanupEphemeral {
		t.Error("--no-cleanup ignored")
	}
	if rc.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", rc.Timeout)
	}
}

func TestArgv(t *testing.T) {
	file := &Config{
		Parser:      ParserConfig{Launcher: []string{"php8.1"}},
		Interpreter: InterpreterConfig{Launcher: []string{"python3"}, Args: []string{"-v"}},
	}
	rc, err := Options{ParseScript: "parse.php", IntScript: "interpret.py"}.Resolve(file)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"php8.1", "parse.php"}, rc.ParserArgv()); diff != "" {
		t.Errorf("ParserArgv mismatch (-want +got):\n%s", diff)
	}
	want := []string{"python3", "interpret.py", "-v", "--source=a.xml", "--input=a.in"}
	if diff := cmp.Diff(want, rc.InterpreterArgv("a.xml", "a.in")); diff != "" {
		t.Errorf("InterpreterArgv mismatch (-want +got):\n%s", diff)
	}
}
