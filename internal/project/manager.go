// Package project ties one project's symbol index, scan coordinator,
// and lifecycle state together, and keeps the process-wide registry of
// per-project managers.
package project

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"gotosym/internal/config"
	"gotosym/internal/logging"
	"gotosym/internal/recent"
	"gotosym/internal/scanner"
	"gotosym/internal/symbols"
)

// Options configures a Manager.
type Options struct {
	Settings *config.Store // scanner invocation + include dirs, read at scan time
	Recent   *recent.Store // recency source for ranked snapshots; may be nil
	Status   func(string)  // transient user-visible notices; may be nil
	Logger   *slog.Logger
}

// Manager owns the symbol state for one project: the in-memory index,
// the scan coordinator, the loaded flag, the recorded folder-set
// snapshot, and the set of currently open files. One Manager exists
// per project for the process lifetime.
type Manager struct {
	root     string
	settings *config.Store
	recents  *recent.Store
	status   func(string)
	logger   *slog.Logger

	index *symbols.Index
	scan  *scanner.Coordinator

	loaded atomic.Bool

	mu           sync.Mutex
	folders      []string
	foldersKnown bool
	openFiles    map[string]struct{}
}

// NewManager creates the manager for a project rooted at root. The
// folder set starts as just the root until an editor event records a
// real one.
func NewManager(root string, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	var scanCfg scanner.Config
	if opts.Settings != nil {
		s := opts.Settings.Settings()
		scanCfg = scanner.Config{
			Interpreter: s.Interpreter,
			Script:      s.ScannerScript,
			ExcludeDirs: s.ExcludeDirs,
		}
	}

	return &Manager{
		root:      root,
		settings:  opts.Settings,
		recents:   opts.Recent,
		status:    opts.Status,
		logger:    logger.With("project", root),
		index:     symbols.NewIndex(),
		scan:      scanner.New(scanCfg, logger),
		folders:   []string{root},
		openFiles: make(map[string]struct{}),
	}
}

// Root returns the project root path.
func (m *Manager) Root() string {
	return m.root
}

// Loaded reports whether an initial full scan has completed.
func (m *Manager) Loaded() bool {
	return m.loaded.Load()
}

// Index exposes the project's symbol index.
func (m *Manager) Index() *symbols.Index {
	return m.index
}

// Coordinator exposes the scan coordinator, mainly for progress
// watching.
func (m *Manager) Coordinator() *scanner.Coordinator {
	return m.scan
}

// Symbols returns the ranked point-in-time snapshot of the index,
// recently visited symbols first.
func (m *Manager) Symbols() []symbols.Symbol {
	var keys []string
	if m.recents != nil {
		var err error
		keys, err = m.recents.Keys()
		if err != nil {
			m.logger.Warn("reading recent symbols", "error", err)
		}
	}
	return m.index.Snapshot(keys)
}

// ScanAll starts a full background scan over the project folders,
// configured include directories, and every currently open file. The
// completion callback replaces the whole index and marks the project
// loaded, also after a failed scan, so a bad run is not retried
// automatically. A scan already in flight drops the request with a
// notice.
func (m *Manager) ScanAll() {
	if err := m.startFullScan(nil); err != nil {
		m.handleStartErr(err)
	}
}

// ScanAllSync runs a full scan and blocks until its results are in the
// index. Used for one-shot lookups without a daemon.
func (m *Manager) ScanAllSync() error {
	done := make(chan struct{})
	if err := m.startFullScan(func() { close(done) }); err != nil {
		return err
	}
	<-done
	return nil
}

// ScanFile starts a background scan restricted to one file; completion
// replaces only that file's entries.
func (m *Manager) ScanFile(path string) {
	err := m.scan.Start([]string{"-f", path}, func(syms []symbols.Symbol) {
		m.index.SetFileSymbols(path, syms)
	})
	if err != nil {
		m.handleStartErr(err)
		return
	}
	go m.scan.WatchProgress(context.Background(), 0, m.notify)
}

// RemoveFile drops a file's symbols from the index. No subprocess.
func (m *Manager) RemoveFile(path string) {
	m.index.RemoveFileSymbols(path)
}

// FileOpened handles an editor open event. The first event records the
// folder set; a project that is not loaded yet, or whose folder set
// changed since last recorded, gets a full rescan, otherwise just the
// opened file is scanned.
func (m *Manager) FileOpened(path string, folders []string) {
	m.mu.Lock()
	if !m.foldersKnown {
		m.folders = slices.Clone(folders)
		m.foldersKnown = true
	}
	changed := !slices.Equal(m.folders, folders)
	if changed {
		m.folders = slices.Clone(folders)
	}
	if path != "" {
		m.openFiles[path] = struct{}{}
	}
	m.mu.Unlock()

	if !m.Loaded() || changed {
		m.ScanAll()
	} else if path != "" {
		m.ScanFile(path)
	}
}

// FileClosed handles an editor close event. Files outside every
// tracked folder were opened ad hoc; their symbols leave the index.
// Files inside a tracked folder stay (they get rescanned on next
// open).
func (m *Manager) FileClosed(path string, folders []string) {
	m.mu.Lock()
	delete(m.openFiles, path)
	m.mu.Unlock()

	if path == "" {
		return
	}
	for _, folder := range folders {
		if strings.HasPrefix(path, folder) {
			return
		}
	}
	m.RemoveFile(path)
}

// FileSaved handles an editor save event: always rescan the file.
func (m *Manager) FileSaved(path string) {
	if path != "" {
		m.ScanFile(path)
	}
}

// Rescan handles an explicit full-rescan request.
func (m *Manager) Rescan() {
	m.ScanAll()
}

// Folders returns the last recorded folder set.
func (m *Manager) Folders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.folders)
}

func (m *Manager) startFullScan(done func()) error {
	err := m.scan.Start(m.fullScanArgs(), func(syms []symbols.Symbol) {
		m.index.SetAll(syms)
		m.loaded.Store(true)
		m.logger.Info("full scan complete", "symbols", len(syms))
		if done != nil {
			done()
		}
	})
	if err != nil {
		return err
	}
	go m.scan.WatchProgress(context.Background(), 0, m.notify)
	return nil
}

// fullScanArgs builds the scanner argument list: project folders and
// include directories as -d, open files as -f.
func (m *Manager) fullScanArgs() []string {
	m.mu.Lock()
	folders := slices.Clone(m.folders)
	open := make([]string, 0, len(m.openFiles))
	for f := range m.openFiles {
		open = append(open, f)
	}
	m.mu.Unlock()
	slices.Sort(open)

	var include []string
	if m.settings != nil {
		include = m.settings.Settings().IncludeDirs
	}

	args := make([]string, 0, 2*(len(folders)+len(include)+len(open)))
	for _, d := range folders {
		args = append(args, "-d", d)
	}
	for _, d := range include {
		args = append(args, "-d", d)
	}
	for _, f := range open {
		args = append(args, "-f", f)
	}
	return args
}

func (m *Manager) handleStartErr(err error) {
	if errors.Is(err, scanner.ErrScanInProgress) {
		m.notify("already scanning, please wait")
		return
	}
	m.logger.Error("starting scan", "error", err)
}

// notify forwards a status line to the host; an empty message clears
// the status display. Without a status sink, non-empty messages land
// in the log.
func (m *Manager) notify(msg string) {
	if m.status != nil {
		m.status(msg)
		return
	}
	if msg != "" {
		m.logger.Info(msg)
	}
}
