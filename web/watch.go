package web

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/mogaika/scene_browser/scene/media"
)

const reloadDelay = 200 * time.Millisecond

// Watch reloads the scene when the local source file changes, until ctx is done.
func (b *Browser) Watch(ctx context.Context) error {
	if b.source == "" || media.IsAbsoluteURL(b.source) {
		return errors.Errorf("Only local scene files can be watched")
	}
	abs, err := filepath.Abs(b.source)
	if err != nil {
		return errors.Wrapf(err, "Failed to resolve %q", b.source)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrapf(err, "Failed to create watcher")
	}
	// editors replace files on save, so the directory is watched
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "Failed to watch %q", filepath.Dir(abs))
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				b.log.Info("source changed, reloading", "source", b.source)
				if err := b.Reload(ctx); err != nil {
					b.log.Warn("reload failed", "err", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				b.log.Warn("watcher error", "err", err)
			}
		}
	}()
	return nil
}
