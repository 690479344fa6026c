// Package daemon provides the background symbol-indexing service.
// It watches registered projects for file changes, keeps their symbol
// indexes fresh through the scan coordinator, and serves lookups over
// a unix-socket IPC surface.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"gotosym/internal/config"
	"gotosym/internal/logging"
	"gotosym/internal/project"
	"gotosym/internal/recent"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// Daemon manages background file watching and index maintenance.
type Daemon struct {
	settings *config.Store
	recents  *recent.Store
	projects *project.Registry
	watcher  *fsnotify.Watcher

	debounceMu  sync.Mutex
	debounceMap map[string]*time.Timer // keyed by file path

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	started time.Time
}

// Status is the daemon state reported over IPC.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Projects  int       `json:"projects"`
	Watches   int       `json:"watches"`
}

// Config holds daemon runtime configuration.
type Config struct {
	DebounceMs int
	PIDPath    string
	SocketPath string
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	configDir := config.DefaultConfigDir()
	return Config{
		DebounceMs: config.DefaultDebounceMs,
		PIDPath:    filepath.Join(configDir, "daemon.pid"),
		SocketPath: DefaultSocketPath(),
	}
}

// New creates a daemon over the given settings and recent-symbols
// store.
func New(settings *config.Store, recents *recent.Store, logger *slog.Logger) (*Daemon, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if logger == nil {
		logger = logging.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		settings:    settings,
		recents:     recents,
		watcher:     watcher,
		debounceMap: make(map[string]*time.Timer),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		started:     time.Now(),
	}
	d.projects = project.NewRegistry(func(root string) *project.Manager {
		return project.NewManager(root, project.Options{
			Settings: settings,
			Recent:   recents,
			Status:   d.showStatus,
			Logger:   logger,
		})
	})

	return d, nil
}

// Projects exposes the manager registry.
func (d *Daemon) Projects() *project.Registry {
	return d.projects
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(cfg Config) error {
	d.logger.Info("daemon starting")

	if err := d.writePIDFile(cfg.PIDPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(cfg.PIDPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	// Watch and scan every registered project up front.
	for _, root := range d.settings.Settings().Projects {
		if err := d.watchProject(root); err != nil {
			d.logger.Warn("watching project", "project", root, "error", err)
		}
		d.projects.Get(root).ScanAll()
	}

	ipcServer, err := NewIPCServer(cfg.SocketPath, d)
	if err != nil {
		return fmt.Errorf("starting IPC server: %w", err)
	}
	defer ipcServer.Close()

	go ipcServer.Serve(d.ctx)
	go d.watcherLoop(cfg)

	d.logger.Info("daemon started", "pid", os.Getpid())

	select {
	case sig := <-sigChan:
		d.logger.Info("received signal", "signal", sig.String())
	case <-d.ctx.Done():
	}

	d.logger.Info("daemon shutting down")
	d.cancel()
	d.watcher.Close()
	return nil
}

// Stop signals the daemon to shut down.
func (d *Daemon) Stop() {
	d.cancel()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:   true,
		PID:       os.Getpid(),
		StartedAt: d.started,
		Projects:  len(d.projects.Roots()),
		Watches:   len(d.watcher.WatchList()),
	}
}

// AddProject registers a project, watches it, and kicks off its first
// full scan.
func (d *Daemon) AddProject(root string) error {
	if err := d.settings.AddProject(root); err != nil {
		return err
	}
	if err := d.watchProject(root); err != nil {
		return err
	}
	d.projects.Get(root).ScanAll()
	return nil
}

// RemoveProject unregisters a project and drops its watches. The
// manager itself stays for the process lifetime.
func (d *Daemon) RemoveProject(root string) error {
	d.unwatchProject(root)
	return d.settings.RemoveProject(root)
}

// showStatus surfaces transient scan notices in the daemon log.
func (d *Daemon) showStatus(msg string) {
	if msg != "" {
		d.logger.Info(msg)
	}
}

// maxWatchesPerProject limits file watchers to prevent descriptor
// exhaustion on large trees.
const maxWatchesPerProject = 1000

// watchProject adds watches for every directory under root, skipping
// ignored and gitignored ones.
func (d *Daemon) watchProject(root string) error {
	count := 0
	limitReached := false
	gi := loadGitignore(root)

	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if isIgnoredDir(entry.Name()) {
			return filepath.SkipDir
		}
		if gi != nil {
			if rel, err := filepath.Rel(root, path); err == nil && rel != "." && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
		}
		if count >= maxWatchesPerProject {
			if !limitReached {
				d.logger.Warn("reached max watches limit", "limit", maxWatchesPerProject, "project", root)
				limitReached = true
			}
			return filepath.SkipDir
		}
		if err := d.watcher.Add(path); err != nil {
			return nil
		}
		count++
		return nil
	})
	d.logger.Debug("added watches", "count", count, "project", root)
	return err
}

// unwatchProject removes all watches under root.
func (d *Daemon) unwatchProject(root string) {
	for _, path := range d.watcher.WatchList() {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			d.watcher.Remove(path)
		}
	}
}

// watcherLoop handles fsnotify events until shutdown.
func (d *Daemon) watcherLoop(cfg Config) {
	debounce := time.Duration(cfg.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = time.Duration(config.DefaultDebounceMs) * time.Millisecond
	}

	for {
		select {
		case <-d.ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(event, debounce)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent maps a filesystem event onto the owning project's
// lifecycle: writes and creates rescan the file (debounced), removals
// drop its symbols.
func (d *Daemon) handleEvent(event fsnotify.Event, debounce time.Duration) {
	// New directories get watched as they appear.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !isIgnoredDir(filepath.Base(event.Name)) {
				d.watcher.Add(event.Name)
			}
			return
		}
	}

	if !isSourceFile(event.Name) {
		return
	}

	root := d.projectForPath(event.Name)
	if root == "" {
		return
	}
	mgr := d.projects.Get(root)

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		mgr.RemoveFile(event.Name)

	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		// Debounce per file: editors fire bursts of writes on save.
		d.debounceMu.Lock()
		if timer, ok := d.debounceMap[event.Name]; ok {
			timer.Stop()
		}
		d.debounceMap[event.Name] = time.AfterFunc(debounce, func() {
			d.debounceMu.Lock()
			delete(d.debounceMap, event.Name)
			d.debounceMu.Unlock()
			mgr.FileSaved(event.Name)
		})
		d.debounceMu.Unlock()
	}
}

// projectForPath returns the registered project root containing path.
func (d *Daemon) projectForPath(path string) string {
	for _, root := range d.settings.Settings().Projects {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// writePIDFile records the daemon PID.
func (d *Daemon) writePIDFile(path string) error {
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// isIgnoredDir returns true if the directory should never be watched.
func isIgnoredDir(name string) bool {
	ignored := map[string]bool{
		".git": true,
		".svn": true,
		".hg":  true,

		".idea":   true,
		".vscode": true,

		"dist":   true,
		"build":  true,
		"target": true,
		"out":    true,

		"node_modules": true,
		"vendor":       true,

		"__pycache__":   true,
		".venv":         true,
		"venv":          true,
		".tox":          true,
		".pytest_cache": true,

		".cache":   true,
		".gotosym": true,
	}
	return ignored[name]
}

// isSourceFile returns true for files worth feeding to the scanner.
func isSourceFile(path string) bool {
	exts := map[string]bool{
		".py":    true,
		".go":    true,
		".js":    true,
		".ts":    true,
		".tsx":   true,
		".jsx":   true,
		".rb":    true,
		".java":  true,
		".c":     true,
		".cpp":   true,
		".h":     true,
		".hpp":   true,
		".rs":    true,
		".php":   true,
		".swift": true,
		".kt":    true,
		".scala": true,
		".cs":    true,
		".lua":   true,
	}
	return exts[filepath.Ext(path)]
}

// loadGitignore combines the global ~/.gitignore with the project's
// local .gitignore, if either exists.
func loadGitignore(root string) *ignore.GitIgnore {
	var patterns []string

	appendFrom := func(path string) {
		content, err := os.ReadFile(path)
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				patterns = append(patterns, line)
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		appendFrom(filepath.Join(home, ".gitignore"))
	}
	appendFrom(filepath.Join(root, ".gitignore"))

	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}
