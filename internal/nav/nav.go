// Package nav resolves symbol lookups into navigation requests against
// a host environment (an editor shim, the terminal, or a test fake).
package nav

import (
	"log/slog"

	"gotosym/internal/logging"
	"gotosym/internal/symbols"
)

// Choice is one entry presented for disambiguation: the symbol name
// and its "path:line" location.
type Choice struct {
	Label  string
	Detail string
}

// Host is the navigation surface the surrounding environment provides.
type Host interface {
	// OpenLocation opens the file at path, positioned at line (1-based)
	// and column.
	OpenLocation(path string, line, col int) error
	// Pick shows a single-choice list and returns the chosen index.
	// ok is false when the user dismissed the list.
	Pick(choices []Choice) (index int, ok bool)
	// Notify shows a non-fatal, transient message.
	Notify(message string)
}

// Recorder receives the full key of every symbol navigated to.
type Recorder interface {
	Touch(fullKey string) error
}

// Service turns ranked symbol candidates into host navigation requests
// and records successful navigations in the recent list.
type Service struct {
	host   Host
	recent Recorder
	logger *slog.Logger
}

// NewService returns a navigation service bound to the given host.
func NewService(host Host, recent Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{host: host, recent: recent, logger: logger}
}

// Navigate resolves candidates, which must already be in rank order.
// No candidates is a user-visible notice; exactly one jumps
// immediately; multiple ask the host to disambiguate. Dismissing the
// choice list does nothing.
func (s *Service) Navigate(candidates []symbols.Symbol) {
	switch len(candidates) {
	case 0:
		s.host.Notify("no matching symbols found")
	case 1:
		s.jump(candidates[0])
	default:
		choices := make([]Choice, len(candidates))
		for i, sym := range candidates {
			choices[i] = Choice{Label: sym.Name, Detail: sym.Location()}
		}
		if idx, ok := s.host.Pick(choices); ok && idx >= 0 && idx < len(candidates) {
			s.jump(candidates[idx])
		}
	}
}

// LookupByName filters snapshot to symbols named exactly word
// (case-sensitive), preserving rank order, and navigates the result.
func (s *Service) LookupByName(word string, snapshot []symbols.Symbol) {
	var matched []symbols.Symbol
	for _, sym := range snapshot {
		if sym.Name == word {
			matched = append(matched, sym)
		}
	}
	s.Navigate(matched)
}

// ShowAll navigates over the entire ranked snapshot.
func (s *Service) ShowAll(snapshot []symbols.Symbol) {
	s.Navigate(snapshot)
}

func (s *Service) jump(sym symbols.Symbol) {
	if s.recent != nil {
		if err := s.recent.Touch(sym.FullKey()); err != nil {
			s.logger.Warn("recording recent symbol", "symbol", sym.FullKey(), "error", err)
		}
	}
	if err := s.host.OpenLocation(sym.Path, sym.Line, 0); err != nil {
		s.logger.Error("opening location", "location", sym.Location(), "error", err)
	}
}
