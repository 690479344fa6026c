package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gotosym/internal/config"
	"gotosym/internal/symbols"
)

// writeArgvScript writes a scanner stand-in that echoes its argv back
// as symbol names, so tests can tell which kind of scan ran.
func writeArgvScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "scanner.sh")
	body := `#!/bin/sh
for arg in "$@"; do
  echo "symbol(name=\"$arg\", type=\"arg\", filename=\"argv\", line=1)"
done
`
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatalf("writing scanner script: %v", err)
	}
	return path
}

func testSettings(t *testing.T, script string) *config.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	raw := fmt.Sprintf(`{"version":1,"interpreter":"/bin/sh","scanner_script":%q,"recent_db_path":%q}`,
		script, filepath.Join(dir, "recent.db"))
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("writing settings: %v", err)
	}
	st, err := config.LoadStoreAt(path)
	if err != nil {
		t.Fatalf("LoadStoreAt() error = %v", err)
	}
	return st
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	script := writeArgvScript(t, t.TempDir())
	return NewManager("/proj", Options{Settings: testSettings(t, script)})
}

// waitIdle blocks until no scan is running for the manager.
func waitIdle(t *testing.T, m *Manager) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, scanning := m.Coordinator().Progress(); !scanning {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan never went idle")
}

func names(syms []symbols.Symbol) map[string]bool {
	out := make(map[string]bool, len(syms))
	for _, s := range syms {
		out[s.Name] = true
	}
	return out
}

func TestScanAllSyncLoadsIndex(t *testing.T) {
	m := newTestManager(t)

	if m.Loaded() {
		t.Fatal("manager loaded before any scan")
	}
	if err := m.ScanAllSync(); err != nil {
		t.Fatalf("ScanAllSync() error = %v", err)
	}
	if !m.Loaded() {
		t.Error("manager not loaded after full scan")
	}

	got := names(m.Symbols())
	if !got["-d"] || !got["/proj"] {
		t.Errorf("full scan argv missing project folder, got %v", got)
	}
}

func TestFileOpenedFirstTimeTriggersFullScan(t *testing.T) {
	m := newTestManager(t)

	m.FileOpened("/proj/a.py", []string{"/proj"})
	waitIdle(t, m)

	if !m.Loaded() {
		t.Fatal("first open did not run a full scan")
	}
	got := names(m.Symbols())
	if !got["-d"] {
		t.Errorf("expected a full scan (-d args), got %v", got)
	}
	// The opened file was part of the full scan argument list.
	if !got["-f"] || !got["/proj/a.py"] {
		t.Errorf("open file missing from full scan argv, got %v", got)
	}
}

func TestFileOpenedWhenLoadedScansJustTheFile(t *testing.T) {
	m := newTestManager(t)
	m.FileOpened("/proj/a.py", []string{"/proj"})
	waitIdle(t, m)

	m.FileOpened("/proj/b.py", []string{"/proj"})
	waitIdle(t, m)

	got := names(m.Symbols())
	if !got["/proj/b.py"] {
		t.Errorf("file scan for opened file missing, got %v", got)
	}
}

func TestFileOpenedFolderChangeTriggersFullScan(t *testing.T) {
	m := newTestManager(t)
	m.FileOpened("/proj/a.py", []string{"/proj"})
	waitIdle(t, m)

	m.FileOpened("/proj/c.py", []string{"/proj", "/lib"})
	waitIdle(t, m)

	got := names(m.Symbols())
	if !got["/lib"] {
		t.Errorf("changed folder set did not trigger a full rescan, got %v", got)
	}
}

func TestFileSavedScansFile(t *testing.T) {
	m := newTestManager(t)
	m.FileOpened("/proj/a.py", []string{"/proj"})
	waitIdle(t, m)

	m.FileSaved("/proj/d.py")
	waitIdle(t, m)

	got := names(m.Symbols())
	if !got["/proj/d.py"] {
		t.Errorf("saved file was not rescanned, got %v", got)
	}
}

func TestFileClosedOutsideFoldersRemovesSymbols(t *testing.T) {
	m := newTestManager(t)
	scratch := symbols.Symbol{Name: "tmp", Kind: "function", Path: "/tmp/scratch.py", Line: 1}
	tracked := symbols.Symbol{Name: "keep", Kind: "function", Path: "/proj/a.py", Line: 2}
	m.Index().SetAll([]symbols.Symbol{scratch, tracked})

	m.FileClosed("/tmp/scratch.py", []string{"/proj"})

	got := m.Index().Snapshot(nil)
	if len(got) != 1 || got[0] != tracked {
		t.Errorf("index after outside-folder close = %v, want only %v", got, tracked)
	}
}

func TestFileClosedInsideFoldersKeepsSymbols(t *testing.T) {
	m := newTestManager(t)
	tracked := symbols.Symbol{Name: "keep", Kind: "function", Path: "/proj/a.py", Line: 2}
	m.Index().SetAll([]symbols.Symbol{tracked})

	m.FileClosed("/proj/a.py", []string{"/proj"})

	if got := m.Index().Len(); got != 1 {
		t.Errorf("index size after in-folder close = %d, want 1", got)
	}
}

func TestFailedFullScanStillLoads(t *testing.T) {
	// Full scans (argv starts with -d) crash; file scans echo argv.
	dir := t.TempDir()
	script := filepath.Join(dir, "flaky.sh")
	body := `#!/bin/sh
case "$1" in
  -d) echo "scanner blew up" >&2; exit 2 ;;
esac
for arg in "$@"; do
  echo "symbol(name=\"$arg\", type=\"arg\", filename=\"argv\", line=1)"
done
`
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("writing scanner script: %v", err)
	}
	m := NewManager("/proj", Options{Settings: testSettings(t, script)})

	if err := m.ScanAllSync(); err != nil {
		t.Fatalf("ScanAllSync() error = %v", err)
	}
	if !m.Loaded() {
		t.Fatal("failed full scan left the project unloaded")
	}
	if got := m.Index().Len(); got != 0 {
		t.Fatalf("index size after crashed scan = %d, want 0", got)
	}

	// The failed scan must not be retried: the next open scans just
	// that file.
	m.FileOpened("/proj/a.py", []string{"/proj"})
	waitIdle(t, m)

	got := names(m.Symbols())
	if got["-d"] {
		t.Errorf("open after failed scan triggered a full rescan, got %v", got)
	}
	if !got["-f"] || !got["/proj/a.py"] {
		t.Errorf("open after failed scan did not scan the file, got %v", got)
	}
}

func TestDuplicateScanNoticed(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "slow.sh")
	body := `#!/bin/sh
sleep 1
echo 'symbol(name="foo", type="def", filename="a.py", line=3)'
`
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("writing scanner script: %v", err)
	}

	var mu sync.Mutex
	var notices []string
	m := NewManager("/proj", Options{
		Settings: testSettings(t, script),
		Status: func(msg string) {
			mu.Lock()
			notices = append(notices, msg)
			mu.Unlock()
		},
	})

	m.ScanAll()
	m.ScanAll() // second attempt while the first runs
	waitIdle(t, m)

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, n := range notices {
		if n == "already scanning, please wait" {
			found = true
		}
	}
	if !found {
		t.Errorf("no duplicate-scan notice, notices = %q", notices)
	}

	if got := m.Index().Len(); got != 1 {
		t.Errorf("index size = %d, want 1 (exactly one scan ran)", got)
	}
}

func TestScanAllIncludesConfiguredIncludeDirs(t *testing.T) {
	dir := t.TempDir()
	script := writeArgvScript(t, dir)
	path := filepath.Join(dir, "settings.json")
	raw := fmt.Sprintf(`{"version":1,"interpreter":"/bin/sh","scanner_script":%q,"include_dirs":["/extra"],"recent_db_path":%q}`,
		script, filepath.Join(dir, "recent.db"))
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("writing settings: %v", err)
	}
	st, err := config.LoadStoreAt(path)
	if err != nil {
		t.Fatalf("LoadStoreAt() error = %v", err)
	}

	m := NewManager("/proj", Options{Settings: st})
	if err := m.ScanAllSync(); err != nil {
		t.Fatalf("ScanAllSync() error = %v", err)
	}

	got := names(m.Symbols())
	if !got["/extra"] {
		t.Errorf("include_dirs missing from full scan argv, got %v", got)
	}
}
