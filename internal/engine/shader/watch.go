package shader

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/simple3d/internal/logger"
)

// Watcher reports edits to shader sources in a directory.
// Edits are coalesced per file: a burst of writes to one file is reported
// once, and edits to different files are all kept until Pending drains them.
type Watcher struct {
	fsw    *fsnotify.Watcher
	notify chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

// Watch starts watching dir for changes to .vs and .fs files.
func Watch(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating shader watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &Watcher{
		fsw:     fsw,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
	}
	go w.loop()

	logger.Info("watching shaders", zap.String("dir", dir))
	return w, nil
}

// Changed receives a signal when Pending has something to return. Poll it
// without blocking from the render thread.
func (w *Watcher) Changed() <-chan struct{} {
	return w.notify
}

// Pending returns the paths of every shader changed since the last call,
// sorted, and forgets them.
func (w *Watcher) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	slices.Sort(paths)
	return paths
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isShaderSource(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.add(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("shader watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) add(path string) {
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func isShaderSource(path string) bool {
	switch filepath.Ext(path) {
	case VertexExt, FragmentExt:
		return true
	}
	return false
}
