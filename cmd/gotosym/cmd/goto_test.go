package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gotosym/internal/config"
	"gotosym/internal/recent"
)

func testStores(t *testing.T) (*config.Store, *recent.Store) {
	t.Helper()
	dir := t.TempDir()

	script := filepath.Join(dir, "scanner.sh")
	body := `#!/bin/sh
echo 'symbol(name="foo", type="function", filename="/proj/a.py", line=3)'
echo 'symbol(name="bar", type="class", filename="/proj/b.py", line=9)'
`
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatalf("writing scanner script: %v", err)
	}

	settingsPath := filepath.Join(dir, "settings.json")
	raw := fmt.Sprintf(`{"version":1,"interpreter":"/bin/sh","scanner_script":%q,"recent_db_path":%q}`,
		script, filepath.Join(dir, "recent.db"))
	if err := os.WriteFile(settingsPath, []byte(raw), 0644); err != nil {
		t.Fatalf("writing settings: %v", err)
	}
	settings, err := config.LoadStoreAt(settingsPath)
	if err != nil {
		t.Fatalf("LoadStoreAt() error = %v", err)
	}

	recents, err := recent.Open(settings.Settings().RecentDBPath)
	if err != nil {
		t.Fatalf("opening recent store: %v", err)
	}
	t.Cleanup(func() { recents.Close() })

	return settings, recents
}

func TestScanOnceReturnsRankedSnapshot(t *testing.T) {
	settings, recents := testStores(t)

	if err := recents.Touch("foo:/proj/a.py:3"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	syms, err := scanOnce(settings, recents, "/proj", "")
	if err != nil {
		t.Fatalf("scanOnce() error = %v", err)
	}
	if len(syms) != 2 {
		t.Fatalf("scanOnce() returned %d symbols, want 2", len(syms))
	}
	if syms[0].Name != "foo" {
		t.Errorf("first symbol = %q, want the recent one first", syms[0].Name)
	}
}

func TestScanOnceFiltersByName(t *testing.T) {
	settings, recents := testStores(t)

	syms, err := scanOnce(settings, recents, "/proj", "bar")
	if err != nil {
		t.Fatalf("scanOnce() error = %v", err)
	}
	if len(syms) != 1 || syms[0].Name != "bar" {
		t.Errorf("scanOnce(name=bar) = %v, want just bar", syms)
	}

	syms, err = scanOnce(settings, recents, "/proj", "nope")
	if err != nil {
		t.Fatalf("scanOnce() error = %v", err)
	}
	if len(syms) != 0 {
		t.Errorf("scanOnce(name=nope) = %v, want empty", syms)
	}
}
