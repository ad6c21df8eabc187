// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchConfig notifies about changes of the configuration file. It watches the parent directory
// because editors and config management tools usually replace the file instead of writing it.
// The returned channel is nil (never ready) if the watch cannot be set up.
func (a *Agent) watchConfig(ctx context.Context) <-chan struct{} {
	if a.ConfigPath == "" {
		return nil
	}

	path, err := filepath.Abs(a.ConfigPath)
	if err != nil {
		a.Warningf("config watch: %v", err)
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		a.Warningf("config watch: failed to create watcher: %v", err)
		return nil
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		a.Warningf("config watch: failed to watch '%s': %v", filepath.Dir(path), err)
		_ = w.Close()
		return nil
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != path || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				a.Warningf("config watch: %v", err)
			}
		}
	}()

	return ch
}
