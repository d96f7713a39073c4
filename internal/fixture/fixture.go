// Package fixture discovers test bundles on disk and synthesizes the
// companion files a bundle is missing.
//
// A bundle is every file sharing a stem with a .src file in the same
// directory:
//
//	add.src   source handed to the parser (or interpreter in int-only mode)
//	add.rc    expected return code, plain text integer (default "0")
//	add.in    input supplied to the interpreter (default empty)
//	add.out   expected interpreter output (default empty)
//	add.xml   intermediate representation written by the parser
//	add.txt   interpreter output captured during the run
package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Kind is the role a file plays within a bundle, named by its suffix.
type Kind string

const (
	Source         Kind = "src"
	ReturnCode     Kind = "rc"
	Input          Kind = "in"
	ExpectedOutput Kind = "out"
	IR             Kind = "xml"
	CapturedOutput Kind = "txt"
)

// DefaultReturnCode is written to synthesized .rc files.
const DefaultReturnCode = "0"

// Bundle is one test case: a source file and its companions.
type Bundle struct {
	Name string // slash-separated path relative to the tests root, without suffix
	Base string // absolute directory + stem

	SourcePath         string
	ReturnCodePath     string
	InputPath          string
	ExpectedOutputPath string
	IRPath             string
	CapturedOutputPath string

	ExpectedCode int
	CodeErr      error  // set when the .rc file does not hold an integer
	RawCode      string // trimmed .rc content

	Synthesized []Kind // companions created because they were missing
}

// DiscoveryError reports an unusable tests root. It aborts the run.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering tests in %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ExitStatus is the process status used when discovery aborts the run.
func (e *DiscoveryError) ExitStatus() int { return 41 }

// Resolver scans a tests root for bundles.
type Resolver struct {
	Root      string
	Recursive bool
	IRSuffix  string  // defaults to "xml"
	Ledger    *Ledger // receives every synthesized path; may be nil
}

// Resolve walks the tests root, groups files into bundles and creates the
// .rc, .in and .out companions that are missing. Bundles are returned in
// lexical order of their source path.
func (r *Resolver) Resolve() ([]Bundle, error) {
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return nil, &DiscoveryError{Root: r.Root, Err: err}
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: r.Root, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Root: r.Root, Err: errors.New("not a directory")}
	}

	groups, err := r.scan(root)
	if err != nil {
		return nil, &DiscoveryError{Root: r.Root, Err: err}
	}

	bases := make([]string, 0, len(groups))
	for base, kinds := range groups {
		if kinds[Source] {
			bases = append(bases, base)
		}
	}
	sort.Strings(bases)

	bundles := make([]Bundle, 0, len(bases))
	for _, base := range bases {
		b, err := r.materialize(root, base, groups[base])
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

// List returns the names of the bundles under the tests root without
// creating any companion file.
func (r *Resolver) List() ([]string, error) {
	root, err := filepath.Abs(r.Root)
	if err != nil {
		return nil, &DiscoveryError{Root: r.Root, Err: err}
	}
	groups, err := r.scan(root)
	if err != nil {
		return nil, &DiscoveryError{Root: r.Root, Err: err}
	}
	var names []string
	for base, kinds := range groups {
		if !kinds[Source] {
			continue
		}
		name, err := filepath.Rel(root, base)
		if err != nil {
			return nil, &DiscoveryError{Root: r.Root, Err: err}
		}
		names = append(names, filepath.ToSlash(name))
	}
	sort.Strings(names)
	return names, nil
}

// scan maps every bundle base to the companion kinds found on disk.
func (r *Resolver) scan(root string) (map[string]map[Kind]bool, error) {
	groups := make(map[string]map[Kind]bool)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !r.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		kind, ok := r.classify(d.Name())
		if !ok {
			return nil
		}
		base := strings.TrimSuffix(path, "."+string(kind))
		if groups[base] == nil {
			groups[base] = make(map[Kind]bool)
		}
		groups[base][kind] = true
		return nil
	})
	return groups, err
}

func (r *Resolver) classify(name string) (Kind, bool) {
	dotExt := filepath.Ext(name)
	if strings.TrimSuffix(name, dotExt) == "" {
		// dotfiles such as ".rc" have no stem
		return "", false
	}
	switch ext := strings.TrimPrefix(dotExt, "."); ext {
	case string(Source), string(ReturnCode), string(Input), string(ExpectedOutput), string(CapturedOutput):
		return Kind(ext), true
	case r.irSuffix():
		return IR, true
	}
	return "", false
}

func (r *Resolver) irSuffix() string {
	if r.IRSuffix != "" {
		return strings.TrimPrefix(r.IRSuffix, ".")
	}
	return string(IR)
}

func (r *Resolver) materialize(root, base string, found map[Kind]bool) (Bundle, error) {
	name, err := filepath.Rel(root, base)
	if err != nil {
		name = filepath.Base(base)
	}
	b := Bundle{
		Name:               filepath.ToSlash(name),
		Base:               base,
		SourcePath:         base + "." + string(Source),
		ReturnCodePath:     base + "." + string(ReturnCode),
		InputPath:          base + "." + string(Input),
		ExpectedOutputPath: base + "." + string(ExpectedOutput),
		IRPath:             base + "." + r.irSuffix(),
		CapturedOutputPath: base + "." + string(CapturedOutput),
	}

	companions := []struct {
		kind    Kind
		path    string
		content string
	}{
		{ReturnCode, b.ReturnCodePath, DefaultReturnCode},
		{Input, b.InputPath, ""},
		{ExpectedOutput, b.ExpectedOutputPath, ""},
	}
	for _, c := range companions {
		if found[c.kind] {
			continue
		}
		created, err := CreateIfMissing(c.path, []byte(c.content))
		if err != nil {
			return b, fmt.Errorf("synthesizing %s: %w", c.path, err)
		}
		if created {
			b.Synthesized = append(b.Synthesized, c.kind)
			r.Ledger.Track(c.path)
		}
	}

	data, err := os.ReadFile(b.ReturnCodePath)
	if err != nil {
		return b, fmt.Errorf("reading %s: %w", b.ReturnCodePath, err)
	}
	b.RawCode = strings.TrimSpace(string(data))
	code, err := strconv.Atoi(b.RawCode)
	if err != nil {
		b.CodeErr = fmt.Errorf("%s: return code %q is not an integer", filepath.Base(b.ReturnCodePath), b.RawCode)
	}
	b.ExpectedCode = code
	return b, nil
}

// CreateIfMissing writes content to path unless the file already exists.
// It reports whether the file was created by this call.
func CreateIfMissing(path string, content []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return true, err
	}
	return true, f.Close()
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
