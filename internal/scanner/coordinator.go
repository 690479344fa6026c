package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gotosym/internal/logging"
	"gotosym/internal/symbols"
)

// ErrScanInProgress is returned by Start when a scan is already running
// for this coordinator. The attempt is dropped, not queued.
var ErrScanInProgress = errors.New("scan already in progress")

// DefaultProgressInterval is how often WatchProgress re-renders status.
const DefaultProgressInterval = 200 * time.Millisecond

// Config holds the scanner subprocess invocation settings.
type Config struct {
	Interpreter string   // executable that runs the scanner script
	Script      string   // path to the scanner script
	ExcludeDirs []string // directories the scanner should skip (-x flags)
}

// Coordinator drives at most one concurrent background scan. The
// single-flight guard is an atomic flag checked-and-set on Start, so
// there is no window between the check and the goroutine launch.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	running  atomic.Bool
	mu       sync.Mutex
	progress int // last published percent, guarded by mu
}

// New returns a coordinator for the given scanner configuration.
func New(cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Coordinator{cfg: cfg, logger: logger}
}

// Start launches one background scan with the given scanner arguments.
// callback receives the accumulated symbols once the subprocess closes
// its output; it runs on the worker goroutine and must be safe off the
// caller's thread. Returns ErrScanInProgress if a scan is running.
func (c *Coordinator) Start(args []string, callback func([]symbols.Symbol)) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrScanInProgress
	}
	c.setProgress(0)
	go c.run(args, callback)
	return nil
}

// Progress reports the last published percent and whether a scan is
// currently active.
func (c *Coordinator) Progress() (percent int, scanning bool) {
	scanning = c.running.Load()
	c.mu.Lock()
	percent = c.progress
	c.mu.Unlock()
	return percent, scanning
}

// WatchProgress periodically renders scan status through the status
// callback until the scan goes idle or ctx is cancelled. A final empty
// status is sent so the caller can clear its status line. Blocks;
// run it on its own goroutine.
func (c *Coordinator) WatchProgress(ctx context.Context, interval time.Duration, status func(string)) {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pct, scanning := c.Progress()
			if !scanning {
				status("")
				return
			}
			status(fmt.Sprintf("scanning symbols (%d%% done)...", pct))
		}
	}
}

// run executes the subprocess and streams its output. All subprocess
// I/O happens here, on the one worker goroutine; the only shared state
// touched is the published progress and whatever the callback writes.
func (c *Coordinator) run(args []string, callback func([]symbols.Symbol)) {
	defer c.running.Store(false)

	argv := make([]string, 0, 1+2*len(c.cfg.ExcludeDirs)+len(args))
	argv = append(argv, c.cfg.Script)
	for _, dir := range c.cfg.ExcludeDirs {
		argv = append(argv, "-x", dir)
	}
	argv = append(argv, args...)

	var collected []symbols.Symbol
	defer func() {
		c.setProgress(100)
		callback(collected)
	}()

	cmd := exec.Command(c.cfg.Interpreter, argv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.logger.Error("scanner stdout pipe", "error", err)
		return
	}
	if err := cmd.Start(); err != nil {
		c.logger.Error("scanner failed to start", "interpreter", c.cfg.Interpreter, "error", err)
		return
	}

	// Line by line rather than reading the stream in bulk, so progress
	// events are visible before the scan completes.
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		ev, err := ParseEvent(sc.Text())
		if err != nil {
			// One corrupt line must not lose the scan.
			c.logger.Debug("skipping malformed scanner line", "error", err)
			continue
		}
		switch ev.Kind {
		case EventProgress:
			c.setProgress(ev.Percent)
		case EventSymbol:
			collected = append(collected, ev.Symbol)
		}
	}
	if err := sc.Err(); err != nil {
		c.logger.Debug("scanner stream read", "error", err)
	}

	// A crash or nonzero exit yields whatever was accumulated; stderr
	// is diagnostic only and never aborts the scan.
	if err := cmd.Wait(); err != nil {
		c.logger.Debug("scanner exited abnormally",
			"error", err, "stderr", strings.TrimSpace(stderr.String()))
	}
}

func (c *Coordinator) setProgress(pct int) {
	c.mu.Lock()
	c.progress = pct
	c.mu.Unlock()
}
