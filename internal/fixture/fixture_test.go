package fixture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// extract writes a txtar archive into a fresh temp directory.
func extract(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func names(bundles []Bundle) []string {
	out := make([]string, len(bundles))
	for i, b := range bundles {
		out[i] = b.Name
	}
	return out
}

const tree = `
-- add.src --
add
-- add.rc --
0
-- add.in --
-- add.out --
3
-- orphan.rc --
5
-- bad.src --
bad
-- sub/nested.src --
nested
-- notes.md --
ignore me
`

func TestResolve_Flat(t *testing.T) {
	dir := extract(t, tree)
	r := &Resolver{Root: dir, Ledger: NewLedger()}
	bundles, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"add", "bad"}, names(bundles)); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}
	if Exists(filepath.Join(dir, "sub", "nested.rc")) {
		t.Error("non-recursive scan touched sub/nested")
	}
	if Exists(filepath.Join(dir, "orphan.in")) {
		t.Error("orphan companion without a source formed a bundle")
	}
}

func TestResolve_Recursive(t *testing.T) {
	dir := extract(t, tree)
	r := &Resolver{Root: dir, Recursive: true, Ledger: NewLedger()}
	bundles, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"add", "bad", "sub/nested"}, names(bundles)); diff != "" {
		t.Errorf("bundles mismatch (-want +got):\n%s", diff)
	}
}

func TestList_DoesNotSynthesize(t *testing.T) {
	dir := extract(t, tree)
	r := &Resolver{Root: dir, Recursive: true}
	got, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"add", "bad", "sub/nested"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if Exists(filepath.Join(dir, "bad.rc")) {
		t.Error("List created a companion file")
	}
}

func TestResolve_SynthesizesDefaults(t *testing.T) {
	dir := extract(t, tree)
	ledger := NewLedger()
	r := &Resolver{Root: dir, Ledger: ledger}
	bundles, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	bad := bundles[1]
	if bad.ExpectedCode != 0 || bad.CodeErr != nil {
		t.Errorf("bad: ExpectedCode = %d, CodeErr = %v, want 0, nil", bad.ExpectedCode, bad.CodeErr)
	}
	for path, want := range map[string]string{
		bad.ReturnCodePath:     "0",
		bad.InputPath:          "",
		bad.ExpectedOutputPath: "",
	} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("reading %s: %v", path, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
		}
	}
	if diff := cmp.Diff([]Kind{ReturnCode, Input, ExpectedOutput}, bad.Synthesized); diff != "" {
		t.Errorf("Synthesized mismatch (-want +got):\n%s", diff)
	}
	if Exists(bad.IRPath) || Exists(bad.CapturedOutputPath) {
		t.Error("IR and captured output must not be created during discovery")
	}

	add := bundles[0]
	if len(add.Synthesized) != 0 {
		t.Errorf("add: Synthesized = %v, want none", add.Synthesized)
	}
	if got := len(ledger.Paths()); got != 3 {
		t.Errorf("ledger tracks %d paths, want 3", got)
	}
}

func TestResolve_CleanupRemovesOnlySynthesized(t *testing.T) {
	dir := extract(t, tree)
	ledger := NewLedger()
	r := &Resolver{Root: dir, Ledger: ledger}
	if _, err := r.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := ledger.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	for _, name := range []string{"bad.rc", "bad.in", "bad.out"} {
		if Exists(filepath.Join(dir, name)) {
			t.Errorf("%s survived cleanup", name)
		}
	}
	for _, name := range []string{"add.src", "add.rc", "add.in", "add.out", "bad.src", "orphan.rc"} {
		if !Exists(filepath.Join(dir, name)) {
			t.Errorf("user fixture %s was removed", name)
		}
	}
}

func TestResolve_ReturnCodeTrimmed(t *testing.T) {
	dir := extract(t, "-- e.src --\n-- e.rc --\n  52 \n")
	bundles, err := (&Resolver{Root: dir}).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if bundles[0].ExpectedCode != 52 {
		t.Errorf("ExpectedCode = %d, want 52", bundles[0].ExpectedCode)
	}
}

func TestResolve_InvalidReturnCode(t *testing.T) {
	dir := extract(t, "-- e.src --\n-- e.rc --\nfifty\n")
	bundles, err := (&Resolver{Root: dir}).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if bundles[0].CodeErr == nil {
		t.Error("expected CodeErr for non-integer return code")
	}
}

func TestResolve_CustomIRSuffix(t *testing.T) {
	dir := extract(t, "-- p.src --\n-- p.ir --\n")
	bundles, err := (&Resolver{Root: dir, IRSuffix: ".ir"}).Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := filepath.Base(bundles[0].IRPath); got != "p.ir" {
		t.Errorf("IRPath = %q, want p.ir", got)
	}
}

func TestResolve_MissingRoot(t *testing.T) {
	_, err := (&Resolver{Root: filepath.Join(t.TempDir(), "nope")}).Resolve()
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if de.ExitStatus() != 41 {
		t.Errorf("ExitStatus = %d, want 41", de.ExitStatus())
	}
}

func TestResolve_RootIsFile(t *testing.T) {
	dir := extract(t, "-- a.src --\n")
	_, err := (&Resolver{Root: filepath.Join(dir, "a.src")}).Resolve()
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
}

func TestCreateIfMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.rc")
	created, err := CreateIfMissing(path, []byte("0"))
	if err != nil || !created {
		t.Fatalf("first call: created = %v, err = %v", created, err)
	}
	if err := os.WriteFile(path, []byte("7"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = CreateIfMissing(path, []byte("0"))
	if err != nil || created {
		t.Fatalf("second call: created = %v, err = %v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "7" {
		t.Errorf("existing file overwritten: %q", data)
	}
}
