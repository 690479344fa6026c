// Package symbols holds the symbol record and the in-memory symbol index.
package symbols

import "fmt"

// Symbol represents one named entity found by the scanner: a function,
// class, variable, etc. Symbols are immutable values compared by full
// equality of all four fields.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // function, class, variable, etc.
	Path string `json:"path"` // file path
	Line int    `json:"line"` // 1-indexed line number
}

// Location returns the "path:line" form used for navigation requests.
func (s Symbol) Location() string {
	return fmt.Sprintf("%s:%d", s.Path, s.Line)
}

// FullKey returns the "name:path:line" identity string used for
// recency tracking.
func (s Symbol) FullKey() string {
	return fmt.Sprintf("%s:%s:%d", s.Name, s.Path, s.Line)
}
