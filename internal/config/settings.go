// Package config manages gotosym settings: the scanner invocation,
// include/exclude directories, and the set of registered projects.
// Settings persist as JSON under the user config directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const (
	// SettingsVersion is the current settings schema version
	SettingsVersion = 1
	// DefaultInterpreter runs the scanner script when none is configured
	DefaultInterpreter = "python"
	// DefaultDebounceMs is the file-watch debounce interval
	DefaultDebounceMs = 500
)

// Settings is the persisted configuration surface.
type Settings struct {
	Version       int      `json:"version"`
	Interpreter   string   `json:"interpreter"`     // executable for the scanner script
	ScannerScript string   `json:"scanner_script"`  // path to the scanner script
	IncludeDirs   []string `json:"include_dirs"`    // extra directories merged into full scans
	ExcludeDirs   []string `json:"exclude_dirs"`    // directories the scanner skips
	DebounceMs    int      `json:"debounce_ms"`     // watcher debounce
	Projects      []string `json:"projects"`        // registered project roots
	RecentDBPath  string   `json:"recent_db_path"`  // recent-symbols store location
}

// DefaultConfigDir returns the config directory path, honoring
// XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gotosym")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gotosym")
}

// DefaultSettingsPath returns the default settings file path.
func DefaultSettingsPath() string {
	return filepath.Join(DefaultConfigDir(), "settings.json")
}

// defaultSettings returns the baseline used when no file exists.
func defaultSettings() *Settings {
	return &Settings{
		Version:      SettingsVersion,
		Interpreter:  DefaultInterpreter,
		DebounceMs:   DefaultDebounceMs,
		RecentDBPath: filepath.Join(DefaultConfigDir(), "recent.db"),
	}
}

// Store loads and persists settings, serializing concurrent updates.
type Store struct {
	path string
	mu   sync.Mutex
	data *Settings
}

// LoadStore creates or loads the settings store at the default path.
func LoadStore() (*Store, error) {
	return LoadStoreAt(DefaultSettingsPath())
}

// LoadStoreAt creates or loads the settings store at a specific path.
// Environment variables GOTOSYM_INTERPRETER and GOTOSYM_SCANNER_SCRIPT
// override the persisted values.
func LoadStoreAt(path string) (*Store, error) {
	st := &Store{path: path, data: defaultSettings()}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		if err := json.Unmarshal(raw, st.data); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
	}

	if st.data.Interpreter == "" {
		st.data.Interpreter = DefaultInterpreter
	}
	if st.data.DebounceMs <= 0 {
		st.data.DebounceMs = DefaultDebounceMs
	}
	if st.data.RecentDBPath == "" {
		st.data.RecentDBPath = filepath.Join(filepath.Dir(path), "recent.db")
	}

	if v := os.Getenv("GOTOSYM_INTERPRETER"); v != "" {
		st.data.Interpreter = v
	}
	if v := os.Getenv("GOTOSYM_SCANNER_SCRIPT"); v != "" {
		st.data.ScannerScript = v
	}

	return st, nil
}

// Settings returns a copy of the current settings.
func (st *Store) Settings() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := *st.data
	out.IncludeDirs = slices.Clone(st.data.IncludeDirs)
	out.ExcludeDirs = slices.Clone(st.data.ExcludeDirs)
	out.Projects = slices.Clone(st.data.Projects)
	return out
}

// Path returns the settings file path.
func (st *Store) Path() string {
	return st.path
}

// AddProject registers a project root. Already-registered roots are a
// no-op.
func (st *Store) AddProject(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if slices.Contains(st.data.Projects, abs) {
		return nil
	}
	st.data.Projects = append(st.data.Projects, abs)
	return st.save()
}

// RemoveProject unregisters a project root.
func (st *Store) RemoveProject(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	i := slices.Index(st.data.Projects, abs)
	if i < 0 {
		return fmt.Errorf("project not registered: %s", root)
	}
	st.data.Projects = slices.Delete(st.data.Projects, i, i+1)
	return st.save()
}

// save writes the settings to disk. Caller holds the lock.
func (st *Store) save() error {
	raw, err := json.MarshalIndent(st.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.path, raw, 0644)
}
