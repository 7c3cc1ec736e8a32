package manifest

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vango-dev/navroute/pkg/router"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path is the manifest file to watch.
	Path string

	// Interval is the polling period. Defaults to 500ms.
	Interval time.Duration

	Logger *slog.Logger
}

// Watcher polls a manifest file and reports each new valid version.
// Versions that fail to parse or build a table are logged and skipped,
// so the last good manifest stays in effect.
type Watcher struct {
	config   WatcherConfig
	mu       sync.Mutex
	onChange func(*Manifest, *router.Table)
	running  bool
	stopCh   chan struct{}
	modTime  time.Time
	size     int64
}

// NewWatcher creates a watcher for config.Path.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Watcher{config: config}
}

// OnChange sets the callback for reloaded manifests. It receives the
// manifest together with the table built from it.
func (w *Watcher) OnChange(fn func(*Manifest, *router.Table)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is done or Stop is called. The file's state at
// Start is the baseline; only later modifications are reported.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	if info, err := os.Stat(w.config.Path); err == nil {
		w.modTime, w.size = info.ModTime(), info.Size()
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.stopCh == stopCh {
			w.running = false
		}
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			w.check()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.config.Path)
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.modTime) || info.Size() != w.size
	if changed {
		w.modTime, w.size = info.ModTime(), info.Size()
	}
	callback := w.onChange
	w.mu.Unlock()

	if !changed || callback == nil {
		return
	}

	data, err := readFile(w.config.Path)
	if err != nil {
		w.config.Logger.Warn("manifest reload failed", "path", w.config.Path, "error", err)
		return
	}
	m, err := Parse(data, w.config.Path)
	var table *router.Table
	if err == nil {
		table, err = m.Table()
	}
	if err != nil {
		w.config.Logger.Warn("manifest reload rejected", "path", w.config.Path, "error", err)
		return
	}

	w.config.Logger.Info("manifest reloaded", "path", w.config.Path, "routes", len(m.Routes))
	callback(m, table)
}
