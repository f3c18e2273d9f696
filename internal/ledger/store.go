// Package ledger holds the per-journal state derived from validator runs:
// the completion snapshot and the autofill caches. The plugin this replaces
// kept these as ambient module globals; here they live in an explicitly
// owned, generation-versioned Store so staleness is visible to callers.
package ledger

import (
	"path/filepath"
	"sync"

	"github.com/beanls/beancount-lsp/internal/beancheck"
)

// Snapshot is the state produced by one validator run. It is immutable once
// installed; a new run replaces it wholesale.
type Snapshot struct {
	Data       beancheck.CompletionData
	Errors     []beancheck.Error
	Flagged    []beancheck.FlaggedEntry
	Automatics map[string]map[string][]string
	CostBasis  map[string]map[string]string
	Generation uint64
}

// Store owns the latest snapshot for one journal. Concurrent validator runs
// are resolved by generation: a run that finishes after a newer one started
// is discarded instead of clobbering newer state.
type Store struct {
	mu   sync.RWMutex
	next uint64
	snap Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Begin reserves a generation for a validator run about to start.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// Install publishes a report under the given generation. It reports whether
// the snapshot was actually replaced; a stale generation is a no-op.
func (s *Store) Install(gen uint64, report beancheck.Report) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.snap.Generation {
		return false
	}
	s.snap = Snapshot{
		Data:       report.Completion,
		Errors:     report.Errors,
		Flagged:    report.Flagged,
		Automatics: report.Hints.Automatics,
		CostBasis:  report.Hints.CostBasis,
		Generation: gen,
	}
	return true
}

// Clear drops derived state, keeping the generation counter so in-flight
// runs from before the clear cannot resurrect old data.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Generation: s.snap.Generation}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// AutomaticsFor returns the automatic-posting cache for one file, resolving
// path aliases (e.g. /private/var vs /var on macOS) when the direct key
// lookup misses.
func (s *Store) AutomaticsFor(path string) map[string][]string {
	snap := s.Snapshot()
	return lookupByPath(snap.Automatics, path)
}

// CostBasisFor is AutomaticsFor for the cost-basis cache.
func (s *Store) CostBasisFor(path string) map[string]string {
	snap := s.Snapshot()
	return lookupByPath(snap.CostBasis, path)
}

func lookupByPath[V any](m map[string]V, path string) V {
	var zero V
	if m == nil {
		return zero
	}
	if v, ok := m[path]; ok {
		return v
	}
	want := canonicalPath(path)
	for key, v := range m {
		if canonicalPath(key) == want {
			return v
		}
	}
	return zero
}

func canonicalPath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// OperatingCurrencies returns the ledger's operating currencies in option
// order.
func OperatingCurrencies(data beancheck.CompletionData) []string {
	var currencies []string
	for _, opt := range data.Options {
		if opt.Key == "operating_currency" && opt.Value != "" {
			currencies = append(currencies, opt.Value)
		}
	}
	return currencies
}
