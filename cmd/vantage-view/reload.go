package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
	"github.com/Mr-Dark-debug/vantage/internal/tui"
)

// reloadDebounce is how long the file must be quiet before reloading.
const reloadDebounce = 200 * time.Millisecond

// watchDocument emits a Reload each time path settles after a change.
// The parent directory is watched so editors that replace the file by
// rename are seen. Only the latest unconsumed event is kept.
func watchDocument(ctx context.Context, path string, v *schema.Validator, debounce time.Duration) (<-chan tui.Reload, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	out := make(chan tui.Reload, 1)
	fire := make(chan struct{}, 1)
	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				if timer == nil {
					timer = time.AfterFunc(debounce, func() {
						select {
						case fire <- struct{}{}:
						default:
						}
					})
				} else {
					timer.Reset(debounce)
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[WARN] Watching %s: %v", path, err)

			case <-fire:
				ev := loadReload(path, v)
				select {
				case <-out:
				default:
				}
				out <- ev
			}
		}
	}()
	return out, nil
}

// loadReload reads, validates and parses path.
func loadReload(path string, v *schema.Validator) tui.Reload {
	data, err := os.ReadFile(path)
	if err != nil {
		return tui.Reload{Err: err}
	}
	if v != nil && !v.Validate(data) {
		errs := v.Errors()
		if len(errs) == 0 {
			return tui.Reload{Err: fmt.Errorf("%s: invalid document", filepath.Base(path))}
		}
		return tui.Reload{Err: fmt.Errorf("%s: %d schema violation(s), first: %s", filepath.Base(path), len(errs), errs[0])}
	}
	doc, err := scene.Parse(data)
	if err != nil {
		return tui.Reload{Err: err}
	}
	return tui.Reload{Doc: doc}
}
