package catalog

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"thermocode/internal/logging"
)

// WatchSnapshot watches dbPath for external writes (another evolve process,
// or an operator editing the snapshot directly) and calls reload whenever
// one lands, so a long-running pipeline picks up externally-applied
// corrections without a restart. It returns immediately; the watch runs in
// a background goroutine until ctx is cancelled. A watcher-creation failure
// is logged and treated as a no-op: hot-reload only ever sharpens a running
// process, it never gates it.
func WatchSnapshot(ctx context.Context, dbPath string, reload func() error) {
	log := logging.Get(logging.CategoryCatalog)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("catalog: snapshot watcher unavailable: %v", err)
		return
	}
	if err := watcher.Add(dbPath); err != nil {
		log.Debug("catalog: not watching %s: %v", dbPath, err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := reload(); err != nil {
					log.Warn("catalog: reload after %s changed: %v", dbPath, err)
				} else {
					log.Debug("catalog: reloaded after external write to %s", dbPath)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("catalog: snapshot watcher error: %v", err)
			}
		}
	}()
}
