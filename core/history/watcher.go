package history

import (
	"log/slog"
	"path/filepath"

	"github.com/adalundhe/rewind/core/step"
	"github.com/fsnotify/fsnotify"
)

// startWatcher monitors the undo directory for step files removed
// behind the engine's back. A removed file flips its entry back to
// unsaved so eviction cannot discard the only remaining copy.
func (e *Engine) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(e.cfg.Dir); err != nil {
		w.Close()
		return err
	}
	e.watcher = w

	go e.watchLoop()
	return nil
}

func (e *Engine) watchLoop() {
	for {
		select {
		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.handleWatchEvent(event)
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.log.Error("undo directory watch error",
				slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) handleWatchEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	ts, ok := step.ParseFileName(filepath.Base(event.Name))
	if !ok {
		return
	}
	ent, ok := e.lookupStamp(ts)
	if !ok {
		return
	}
	ent.markUnsaved()
	e.log.Warn("step file removed externally",
		slog.Uint64("timestamp", ts))
}

func (e *Engine) stopWatcher() {
	if e.watcher == nil {
		return
	}
	e.watcher.Close()
	e.watcher = nil
}
