package patch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long Watch waits for the directory to settle
// before rebuilding the table.
const DefaultReloadDelay = 500 * time.Millisecond

// Watch rebuilds the patch table whenever a .mpq file in the patch directory
// is created, written, removed or renamed. Bursts of events within
// reloadDelay trigger one rebuild. Watch blocks until ctx is done.
func (p *Patcher) Watch(ctx context.Context, reloadDelay time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating patch watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(p.dir); err != nil {
		return fmt.Errorf("watching %s: %w", p.dir, err)
	}
	slog.Info("watching patch directory", "dir", p.dir)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, patchExt) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)

		case <-timer.C:
			n := p.Load()
			slog.Info("patch table reloaded", "patches", n)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("patch watcher error", "err", err)
		}
	}
}
