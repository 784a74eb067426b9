package pack

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hawkmirror/hawk/internal/hlog"
)

// Watcher reloads an Index from dir whenever its pack.toml manifests
// change on disk, delivering each reload to onReload. A reload that fails
// to parse (a bad manifest mid-edit, say) is logged and otherwise ignored;
// the previously loaded Index stays in effect until a reload succeeds.
type Watcher struct {
	fsw *fsnotify.Watcher
	dir string
}

// reloadSettle is how long the watcher waits after the last event before
// reloading, so a pack written in several steps is loaded once, complete.
const reloadSettle = 100 * time.Millisecond

// WatchDir starts watching dir and every existing pack subdirectory within
// it for create/write/remove/rename events, invoking onReload with a freshly
// loaded Index after each settle (reloadSettle with no further events). A
// missing dir is not an error, mirroring Load: nothing is watched and
// onReload is never called, even if the directory is created later. Callers
// must call Close when done.
func WatchDir(dir string, onReload func(*Index)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(dir); err == nil {
		if err := addDirAndChildren(fsw, dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{fsw: fsw, dir: dir}

	go func() {
		var settle <-chan time.Time
		var lastPath string
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				lastPath = ev.Name
				settle = time.After(reloadSettle)
			case <-settle:
				settle = nil
				idx, err := Load(dir)
				if err != nil {
					hlog.Warn("pack reload failed, keeping previous index", "error", err)
					continue
				}
				hlog.Debug("packs reloaded", "dir", dir, "path", lastPath)
				onReload(idx)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				hlog.Warn("pack watcher error", "error", err)
			}
		}
	}()

	return w, nil
}

func addDirAndChildren(fsw *fsnotify.Watcher, dir string) error {
	if err := fsw.Add(dir); err != nil {
		return err
	}
	entries, err := readDirEntries(dir)
	if err != nil {
		return nil // dir itself stays watched; its subdirectories are not
	}
	for _, e := range entries {
		_ = fsw.Add(e)
	}
	return nil
}

func readDirEntries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
