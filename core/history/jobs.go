package history

import (
	"log/slog"

	"github.com/adalundhe/rewind/core/step"
)

// job is one unit of background I/O. Jobs touching an entry serialize
// on the entry's own lock, not on queue order.
type job interface {
	run(e *Engine)
}

// saveJob writes an entry's step file if it does not exist yet.
type saveJob struct {
	entry *Entry
}

func (j saveJob) run(e *Engine) {
	j.entry.mu.Lock()
	defer j.entry.mu.Unlock()

	if j.entry.saved {
		return
	}
	rec := &step.Record{
		UserID:    j.entry.userID,
		Timestamp: j.entry.timestamp,
		Command:   j.entry.command,
		Data:      j.entry.blob,
	}
	if err := rec.WriteFile(e.cfg.Dir); err != nil {
		e.log.Error("save step failed",
			slog.Uint64("timestamp", j.entry.timestamp),
			slog.String("error", err.Error()))
		return
	}
	j.entry.saved = true
}

// warmJob loads an entry's backup blob from disk if it is cold.
type warmJob struct {
	entry *Entry
}

func (j warmJob) run(e *Engine) {
	j.entry.mu.Lock()
	defer j.entry.mu.Unlock()

	if len(j.entry.blob) > 0 {
		return
	}
	rec, err := step.ReadFile(e.cfg.Dir, j.entry.timestamp, step.SectionData)
	if err != nil {
		e.log.Error("warm step failed",
			slog.Uint64("timestamp", j.entry.timestamp),
			slog.String("error", err.Error()))
		return
	}
	j.entry.blob = rec.Data
}

// keyJob populates an entry's user and command from disk without
// touching the blob. Used only during manifest reconciliation.
type keyJob struct {
	entry *Entry
}

func (j keyJob) run(e *Engine) {
	j.entry.mu.Lock()
	defer j.entry.mu.Unlock()

	rec, err := step.ReadFile(e.cfg.Dir, j.entry.timestamp, step.SectionKey)
	if err != nil {
		e.log.Error("load step key failed",
			slog.Uint64("timestamp", j.entry.timestamp),
			slog.String("error", err.Error()))
		return
	}
	j.entry.userID = rec.UserID
	j.entry.command = rec.Command
}

// deleteJob removes the step files for a pruned tail. Idempotent;
// absence is not an error.
type deleteJob struct {
	timestamps []uint64
}

func (j deleteJob) run(e *Engine) {
	for _, ts := range j.timestamps {
		if err := step.Remove(e.cfg.Dir, ts); err != nil {
			e.log.Error("delete step failed",
				slog.Uint64("timestamp", ts),
				slog.String("error", err.Error()))
		}
	}
}
