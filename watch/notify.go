package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatchManager supplements the poll loop with fsnotify events, the direct Go
// analog of the original project's pyinotify IN_CREATE/IN_MOVE_TO handler.
// It is a latency optimization only; the poll loop alone remains correct,
// per the spec's "nice-to-have, not a correctness requirement" framing.
type WatchManager struct {
	driver *Driver
	watcher *fsnotify.Watcher
}

// NewWatchManager starts watching driver.Dir for create/rename events.
func NewWatchManager(d *Driver) (*WatchManager, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(d.Dir); err != nil {
		w.Close()
		return nil, err
	}
	return &WatchManager{driver: d, watcher: w}, nil
}

// Run dispatches matching events to the driver's per-file processing until
// ctx is cancelled.
func (wm *WatchManager) Run(ctx context.Context) {
	defer wm.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-wm.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, wm.driver.InSuffix) || strings.HasSuffix(name, wm.driver.OutSuffix) {
				continue
			}
			// Skip files whose output already exists or is being written.
			info, err := os.Stat(ev.Name)
			if err != nil || !wm.driver.eligible(name, info) {
				continue
			}
			outPath := wm.driver.outputPath(ev.Name)
			busy := false
			for _, p := range wm.driver.Registry.Paths() {
				if p == outPath {
					busy = true
					break
				}
			}
			if busy {
				continue
			}
			go wm.driver.processFile(ctx, ev.Name)
		case err, ok := <-wm.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("fsnotify error", "err", err)
		}
	}
}
