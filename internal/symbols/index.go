package symbols

import (
	"sort"
	"sync"
)

// Index is the thread-safe in-memory symbol container for one project.
// Symbols are stored with set semantics: duplicates by full equality
// collapse into one entry. All mutations and the snapshot copy go
// through a single mutex; the lock is never held across I/O or sorting.
type Index struct {
	mu   sync.Mutex
	syms map[Symbol]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{syms: make(map[Symbol]struct{})}
}

// Snapshot returns a point-in-time copy of the index, sorted by the
// ranking key: symbols whose full key appears in recentKeys come first,
// ordered by their position in that list (0 = most recent); everything
// else follows, ordered by (name, path, line, kind). Safe to call
// concurrently with mutations.
func (idx *Index) Snapshot(recentKeys []string) []Symbol {
	rank := make(map[string]int, len(recentKeys))
	for i, key := range recentKeys {
		if _, ok := rank[key]; !ok {
			rank[key] = i
		}
	}

	idx.mu.Lock()
	out := make([]Symbol, 0, len(idx.syms))
	for s := range idx.syms {
		out = append(out, s)
	}
	idx.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		ri, iRecent := rank[out[i].FullKey()]
		rj, jRecent := rank[out[j].FullKey()]
		if iRecent != jRecent {
			return iRecent
		}
		if iRecent && ri != rj {
			return ri < rj
		}
		// Same recency rank only happens for symbols sharing a full
		// key (kinds at one location); fall through to the field order
		// so the comparator stays total.
		return less(out[i], out[j])
	})

	return out
}

// Len returns the number of distinct symbols currently indexed.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.syms)
}

// SetAll atomically replaces the entire index with the given symbols.
// Used after a full project scan.
func (idx *Index) SetAll(syms []Symbol) {
	next := make(map[Symbol]struct{}, len(syms))
	for _, s := range syms {
		next[s] = struct{}{}
	}

	idx.mu.Lock()
	idx.syms = next
	idx.mu.Unlock()
}

// SetFileSymbols atomically removes all entries for path and inserts
// syms, which are assumed to already be restricted to that file. Used
// after a single-file rescan. Entries for other files are untouched.
func (idx *Index) SetFileSymbols(path string, syms []Symbol) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeFileLocked(path)
	for _, s := range syms {
		idx.syms[s] = struct{}{}
	}
}

// RemoveFileSymbols atomically removes all entries whose path matches.
// Used when a file leaves the project.
func (idx *Index) RemoveFileSymbols(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeFileLocked(path)
}

// removeFileLocked deletes all symbols for path. Caller holds the lock.
func (idx *Index) removeFileLocked(path string) {
	for s := range idx.syms {
		if s.Path == path {
			delete(idx.syms, s)
		}
	}
}

// less orders symbols by (name, path, line, kind) ascending.
func less(a, b Symbol) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Kind < b.Kind
}
