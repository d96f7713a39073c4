package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestMatch(t *testing.T) {
	f := &Fetcher{}
	tests := map[string]bool{
		"git+https://example.com/suite":     true,
		"git+file:///srv/suite":             true,
		"git@github.com:org/suite.git":      true,
		"https://example.com/org/suite.git": true,
		"ssh://host/suite.git":              true,
		"https://example.com/suite":         false,
		"./tests":                           false,
		"/srv/suite.git":                    false,
		"":                                  false,
	}
	for root, want := range tests {
		if got := f.Match(root); got != want {
			t.Errorf("Match(%q) = %v, want %v", root, got, want)
		}
	}
}

// commitFile writes name into the repository worktree and commits it.
func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hash, err := worktree.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "testrig", Email: "testrig@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash
}

func TestFetch_Ref(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	first := commitFile(t, repo, origin, "first.src", "x\n")
	commitFile(t, repo, origin, "second.src", "y\n")

	f := &Fetcher{Ref: first.String(), TempDir: t.TempDir()}
	dir, release, err := f.Fetch(context.Background(), "git+file://"+origin)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "first.src")); err != nil {
		t.Errorf("first.src missing from checkout: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "second.src")); err == nil {
		t.Error("checkout is not at the requested ref")
	}

	release()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("release left %s behind", dir)
	}
}

func TestFetch_UnknownRef(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	commitFile(t, repo, origin, "a.src", "x\n")

	parent := t.TempDir()
	f := &Fetcher{Ref: "no-such-branch", TempDir: parent}
	if _, _, err := f.Fetch(context.Background(), "git+file://"+origin); err == nil {
		t.Fatal("expected error for an unknown ref")
	}
	entries, _ := os.ReadDir(parent)
	if len(entries) != 0 {
		t.Errorf("failed fetch left %d entries behind", len(entries))
	}
}

func TestFetch_CloneError(t *testing.T) {
	f := &Fetcher{TempDir: t.TempDir()}
	if _, _, err := f.Fetch(context.Background(), "git+file://"+filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for a missing repository")
	}
}
