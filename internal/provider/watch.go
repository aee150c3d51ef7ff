package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// debounceDelay collapses the burst of events an editor save produces.
const debounceDelay = 100 * time.Millisecond

// WatchSchema loads the YAML schema at path and reloads it whenever the file
// changes, until ctx is done. A reload that fails to parse is logged and the
// previous snapshot stays in place.
func (p *Provider) WatchSchema(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file instead of
	// writing it in place, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch schema dir: %w", err)
	}

	if err := p.reloadSchema(abs); err != nil {
		return err
	}

	p.watchLoop(ctx, watcher, abs)
	return nil
}

func (p *Provider) reloadSchema(path string) error {
	c, err := schema.LoadFile(path)
	if err != nil {
		return err
	}
	version := p.SetSchema(c)
	p.logger.Info("schema loaded", "path", path, "version", version, "entities", c.Len())
	return nil
}

func (p *Provider) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

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
			if filepath.Clean(event.Name) != path {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				if ctx.Err() != nil {
					return
				}
				if err := p.reloadSchema(path); err != nil {
					p.logger.Warn("schema reload failed, keeping previous schema", "path", path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("schema watcher error", "error", err)
		}
	}
}
