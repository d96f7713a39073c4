package fixture

import (
	"errors"
	"io/fs"
	"os"
)

// Ledger records files a run created so they can be removed afterwards.
// It is owned by a single run and is not safe for concurrent use.
type Ledger struct {
	paths []string
	seen  map[string]bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]bool)}
}

// Track adds path to the ledger. Tracking the same path twice is a no-op,
// as is tracking on a nil ledger.
func (l *Ledger) Track(path string) {
	if l == nil || l.seen[path] {
		return
	}
	l.seen[path] = true
	l.paths = append(l.paths, path)
}

// Paths returns the tracked paths in the order they were created.
func (l *Ledger) Paths() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.paths...)
}

// Cleanup removes every tracked file, newest first. Files that are already
// gone are ignored; other failures are joined into the returned error.
func (l *Ledger) Cleanup() error {
	if l == nil {
		return nil
	}
	var errs []error
	for i := len(l.paths) - 1; i >= 0; i-- {
		if err := os.Remove(l.paths[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	l.paths = nil
	l.seen = make(map[string]bool)
	return errors.Join(errs...)
}
