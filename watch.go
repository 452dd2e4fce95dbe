package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events an editor produces on save.
const reloadDebounce = 300 * time.Millisecond

// watchFile calls reload after path changes, until ctx is done. The parent
// directory is watched so that replace-by-rename saves are seen too.
func watchFile(ctx context.Context, path string, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		fire := make(chan struct{}, 1)
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
				slog.Debug("world file changed", "path", abs, "op", event.Op.String())
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})

			case <-fire:
				reload()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("watcher error", "path", abs, "err", err)
			}
		}
	}()

	slog.Info("watching world file", "path", abs)
	return nil
}
