// Package history implements a persistent, multi-user undo/redo engine:
// an ordered command history with a movable cursor, per-step backup
// blobs persisted to one file each, a bounded look-ahead warm cache,
// and a small worker pool that keeps disk I/O off the foreground path.
package history

import "sync"

// Entry is one recorded command execution. The mutex protects blob and
// saved, which are shared between the foreground actor and I/O workers.
// The identity fields are written once: before the entry is shared for
// an executed step, or by the key-load job under the mutex for an entry
// reloaded from a manifest, which the engine drains before reading them.
type Entry struct {
	mu        sync.Mutex
	userID    int32
	timestamp uint64
	command   string
	blob      []byte
	saved     bool
}

// UserID returns the opaque user tag supplied at Execute time.
func (e *Entry) UserID() int32 { return e.userID }

// Timestamp returns the entry's durable identity.
func (e *Entry) Timestamp() uint64 { return e.timestamp }

// Command returns the full command line, command name first.
func (e *Entry) Command() string { return e.command }

// Cached reports whether the backup blob is resident in memory.
func (e *Entry) Cached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.blob) > 0
}

// Saved reports whether the step file for this entry exists on disk.
func (e *Entry) Saved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saved
}

func (e *Entry) markUnsaved() {
	e.mu.Lock()
	e.saved = false
	e.mu.Unlock()
}
