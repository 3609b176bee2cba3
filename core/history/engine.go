package history

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adalundhe/rewind/core/command"
	"github.com/adalundhe/rewind/core/step"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var (
	ErrClosed             = errors.New("engine is closed")
	ErrUnknownCommand     = errors.New("unable to find the command")
	ErrMemoryOnly         = errors.New("engine has no undo directory")
	ErrAutoLoadWithoutDir = errors.New("auto load/save requires an undo directory")
	ErrCacheWindow        = errors.New("max cached steps must exceed twice the look-ahead plus one")
	ErrDuplicateTimestamp = errors.New("manifest contains duplicate timestamps")
	ErrColdEntry          = errors.New("backup blob unavailable")
)

// Config configures an Engine.
type Config struct {
	// Dir is the undo directory. Empty makes the engine memory-only:
	// no workers, no watcher, no disk I/O of any kind.
	Dir string

	// AutoLoadSave loads an existing manifest at construction and
	// saves one at Close. Requires Dir.
	AutoLoadSave bool

	// MaxCachedSteps bounds the warm set. Must exceed
	// 2*LookAheadSteps + 1.
	MaxCachedSteps int

	// LookAheadSteps is the prefetch radius around the cursor.
	LookAheadSteps int

	// Workers is the I/O worker count.
	Workers int

	// DefaultUserID tags entries executed with a negative user id.
	DefaultUserID int32

	// WatchExternal watches Dir for step files removed behind the
	// engine's back and marks the matching entries unsaved.
	WatchExternal bool

	// Output receives help text. Defaults to os.Stdout.
	Output io.Writer

	// Logger receives worker diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxCachedSteps: 50,
		LookAheadSteps: 5,
		Workers:        4,
		DefaultUserID:  1,
	}
}

// Engine is the history engine. A single foreground actor drives all
// mutating operations; only the job queue and per-entry state are
// shared with workers.
type Engine struct {
	cfg Config
	log *slog.Logger
	out io.Writer
	reg *command.Registry

	history []*Entry
	cursor  int
	lru     []*Entry
	counter uint64
	last    uint64

	stampMu sync.Mutex
	byStamp map[uint64]*Entry

	qmu    sync.Mutex
	qcond  *sync.Cond
	jobs   []job
	active int
	done   bool
	wg     sync.WaitGroup

	watcher *fsnotify.Watcher
	closed  bool
}

// New creates an engine dispatching through reg. With a configured
// directory it spawns the worker pool and, under AutoLoadSave, loads
// any existing manifest; a missing manifest is an empty history.
func New(reg *command.Registry, cfg Config) (*Engine, error) {
	if cfg.Dir == "" && cfg.AutoLoadSave {
		return nil, ErrAutoLoadWithoutDir
	}
	if cfg.MaxCachedSteps <= 0 {
		cfg.MaxCachedSteps = 50
	}
	if cfg.LookAheadSteps <= 0 {
		cfg.LookAheadSteps = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.DefaultUserID == 0 {
		cfg.DefaultUserID = 1
	}
	if cfg.MaxCachedSteps <= 2*cfg.LookAheadSteps+1 {
		return nil, ErrCacheWindow
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:     cfg,
		log:     logger.With(slog.String("engine_id", uuid.NewString())),
		out:     cfg.Output,
		reg:     reg,
		byStamp: make(map[uint64]*Entry),
	}
	e.qcond = sync.NewCond(&e.qmu)

	if !e.persistent() {
		return e, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create undo directory: %w", err)
	}

	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}

	if cfg.WatchExternal {
		if err := e.startWatcher(); err != nil {
			e.stopWorkers()
			return nil, err
		}
	}

	if cfg.AutoLoadSave {
		if _, err := os.Stat(step.ManifestPath(cfg.Dir)); err == nil {
			if err := e.LoadTimestamps(); err != nil {
				e.stopWatcher()
				e.stopWorkers()
				return nil, err
			}
		}
	}

	return e, nil
}

func (e *Engine) persistent() bool {
	return e.cfg.Dir != ""
}

// Dir returns the undo directory, empty for a memory-only engine.
func (e *Engine) Dir() string { return e.cfg.Dir }

// Len returns the history length.
func (e *Engine) Len() int { return len(e.history) }

// Cursor returns the count of currently applied entries.
func (e *Engine) Cursor() int { return e.cursor }

// CacheSize returns the warm-set occupancy, duplicates included.
func (e *Engine) CacheSize() int { return len(e.lru) }

// At returns the i-th history entry.
func (e *Engine) At(i int) *Entry { return e.history[i] }

// Execute parses and runs the command named by the first token of
// line, recording an undo step under the default user id.
func (e *Engine) Execute(line string) error {
	return e.ExecuteAs(line, -1)
}

// ExecuteAs is Execute with an explicit user id; a negative id selects
// the default.
func (e *Engine) ExecuteAs(line string, userID int32) error {
	if e.closed {
		return ErrClosed
	}
	name := command.Name(line)
	h, ok := e.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return e.run(h, line, userID)
}

// ExecuteHost runs a specific host directly, bypassing name lookup.
// The first token of line must still be the host's registered name or
// later undo dispatch will fail.
func (e *Engine) ExecuteHost(h command.Host, line string, userID int32) error {
	if e.closed {
		return ErrClosed
	}
	return e.run(h, line, userID)
}

func (e *Engine) run(h command.Host, line string, userID int32) error {
	opts := h.Options()
	if err := opts.Parse(line); err != nil {
		return err
	}
	if opts.HelpRequested() {
		fmt.Fprint(e.out, opts.Help())
		return nil
	}

	if userID < 0 {
		userID = e.cfg.DefaultUserID
	}
	ent := &Entry{
		userID:    userID,
		timestamp: e.nextTimestamp(),
		command:   line,
	}
	h.Backup(command.NewCursor(&ent.blob))

	if err := h.Redo(); err != nil {
		return err
	}

	e.prune()
	e.history = append(e.history, ent)
	e.index(ent)
	e.cursor++

	if e.persistent() {
		e.push(saveJob{ent})
		e.lru = append(e.lru, ent)
		e.updateLRU()
	}
	return nil
}

// nextTimestamp derives a unique, strictly increasing timestamp:
// wall-clock milliseconds scaled by 1000 plus a per-engine counter,
// clamped above the last issued or loaded value.
func (e *Engine) nextTimestamp() uint64 {
	ts := uint64(time.Now().UnixMilli())*1000 + e.counter
	e.counter++
	if ts <= e.last {
		ts = e.last + 1
	}
	e.last = ts
	return ts
}

// Undo reverses the entry before the cursor. A no-op at the start of
// history. A cold entry is warmed synchronously on the caller's
// goroutine before its command's Undo runs.
func (e *Engine) Undo() error {
	if e.closed {
		return ErrClosed
	}
	if e.cursor == 0 {
		return nil
	}

	ent := e.history[e.cursor-1]
	h, ok := e.reg.Lookup(command.Name(ent.command))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command.Name(ent.command))
	}

	if e.persistent() && !ent.Cached() {
		warmJob{ent}.run(e)
		if !ent.Cached() {
			return fmt.Errorf("step %d: %w", ent.timestamp, ErrColdEntry)
		}
	}

	e.cursor--

	ent.mu.Lock()
	err := h.Undo(command.NewCursor(&ent.blob))
	ent.mu.Unlock()
	if err != nil {
		return fmt.Errorf("undo step %d: %w", ent.timestamp, err)
	}

	if e.persistent() {
		e.lru = append(e.lru, ent)
		e.updateLRU()
	}
	return nil
}

// Redo re-executes the entry at the cursor. A no-op at the end of
// history. Re-parse and re-execution failures are swallowed: the
// command already succeeded once and its error was already seen.
func (e *Engine) Redo() error {
	if e.closed {
		return ErrClosed
	}
	if e.cursor == len(e.history) {
		return nil
	}

	ent := e.history[e.cursor]
	h, ok := e.reg.Lookup(command.Name(ent.command))
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command.Name(ent.command))
	}

	ent.mu.Lock()
	err := h.Options().Parse(ent.command)
	if err == nil {
		err = h.Redo()
	}
	ent.mu.Unlock()
	if err != nil {
		e.log.Debug("redo failed",
			slog.Uint64("timestamp", ent.timestamp),
			slog.String("error", err.Error()))
		return nil
	}

	if e.persistent() {
		e.lru = append(e.lru, ent)
		e.updateLRU()
	}
	e.cursor++
	return nil
}

// prune removes every entry at or past the cursor. Their step files
// are deleted asynchronously in persistent mode; memory-only pruning
// never touches disk.
func (e *Engine) prune() {
	if e.cursor >= len(e.history) {
		return
	}

	timestamps := make([]uint64, 0, len(e.history)-e.cursor)
	for _, ent := range e.history[e.cursor:] {
		timestamps = append(timestamps, ent.timestamp)
		e.unindex(ent)
	}

	if e.persistent() {
		e.push(deleteJob{timestamps})
	}

	for i := e.cursor; i < len(e.history); i++ {
		e.history[i] = nil
	}
	e.history = e.history[:e.cursor]
}

// updateLRU enforces the warm-set bound and schedules warm-ups for the
// look-ahead window around the cursor. Eviction clears a blob only
// once its step file exists; an unsaved blob is the only copy.
func (e *Engine) updateLRU() {
	if len(e.history) == 0 {
		return
	}

	low := e.cfg.MaxCachedSteps - 2*e.cfg.LookAheadSteps - 1
	for len(e.lru) > low {
		oldest := e.lru[0]
		oldest.mu.Lock()
		if oldest.saved {
			oldest.blob = nil
		}
		oldest.mu.Unlock()
		e.lru[0] = nil
		e.lru = e.lru[1:]
	}

	for i := 1; i <= e.cfg.LookAheadSteps && len(e.lru) < e.cfg.MaxCachedSteps; i++ {
		if e.cursor-i >= 0 && !e.history[e.cursor-i].Cached() {
			e.push(warmJob{e.history[e.cursor-i]})
			e.lru = append(e.lru, e.history[e.cursor-i])
		}
		if e.cursor+i < len(e.history) && !e.history[e.cursor+i].Cached() {
			e.push(warmJob{e.history[e.cursor+i]})
			e.lru = append(e.lru, e.history[e.cursor+i])
		}
	}
}

// SaveTimestamps writes the manifest to the default location under the
// undo directory. Only entries before the cursor are recorded: the
// manifest defines the history the next process sees.
func (e *Engine) SaveTimestamps() error {
	if !e.persistent() {
		return ErrMemoryOnly
	}
	return e.SaveTimestampsTo(step.ManifestPath(e.cfg.Dir))
}

// SaveTimestampsTo writes the manifest to an explicit path.
func (e *Engine) SaveTimestampsTo(path string) error {
	if e.closed {
		return ErrClosed
	}
	timestamps := make([]uint64, e.cursor)
	for i := 0; i < e.cursor; i++ {
		timestamps[i] = e.history[i].timestamp
	}
	if err := step.WriteManifest(path, timestamps); err != nil {
		return fmt.Errorf("save timestamps: %w", err)
	}
	return nil
}

// LoadTimestamps replaces the in-memory history with the manifest at
// the default location under the undo directory.
func (e *Engine) LoadTimestamps() error {
	if !e.persistent() {
		return ErrMemoryOnly
	}
	return e.LoadTimestampsFrom(step.ManifestPath(e.cfg.Dir))
}

// LoadTimestampsFrom replaces the in-memory history with the manifest
// at path. Entries are created as saved placeholders, their keys are
// loaded in the background, and the most recent window is scheduled
// for warm-up so near-term undos stay off the disk.
func (e *Engine) LoadTimestampsFrom(path string) error {
	if e.closed {
		return ErrClosed
	}
	if !e.persistent() {
		return ErrMemoryOnly
	}

	e.drain()

	e.history = nil
	e.lru = nil
	e.cursor = 0
	e.stampMu.Lock()
	e.byStamp = make(map[uint64]*Entry)
	e.stampMu.Unlock()

	timestamps, err := step.ReadManifest(path)
	if err != nil {
		return fmt.Errorf("load timestamps: %w", err)
	}

	seen := make(map[uint64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		if _, dup := seen[ts]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateTimestamp, ts)
		}
		seen[ts] = struct{}{}
	}

	for _, ts := range timestamps {
		ent := &Entry{timestamp: ts, saved: true}
		e.history = append(e.history, ent)
		e.index(ent)
		e.push(keyJob{ent})

		if ts > e.last {
			e.last = ts
		}
	}
	e.cursor = len(e.history)

	e.drain()

	for i := max(0, e.cursor-e.cfg.MaxCachedSteps); i < e.cursor; i++ {
		ent := e.history[i]
		e.lru = append(e.lru, ent)
		if !ent.Cached() && ent.Saved() {
			e.push(warmJob{ent})
		}
	}
	return nil
}

// Flush blocks until all queued background I/O has completed.
func (e *Engine) Flush() {
	e.drain()
}

// SuggestNext synthesizes a follow-up move for the user based on the
// most recent applied entry: the last target translated by 10 on both
// axes. Diagnostic only.
func (e *Engine) SuggestNext(userID int32) string {
	const fallback = "-Move -T 0 0"
	if e.cursor == 0 {
		return fallback
	}
	last := e.history[e.cursor-1]
	if last.userID != userID || !strings.Contains(last.command, "Move") {
		return fallback
	}

	fields := strings.Fields(last.command)
	for i, f := range fields {
		if f != "-T" || i+2 >= len(fields) {
			continue
		}
		x, errX := strconv.Atoi(fields[i+1])
		y, errY := strconv.Atoi(fields[i+2])
		if errX != nil || errY != nil {
			break
		}
		return fmt.Sprintf("-Move -T %d %d", x+10, y+10)
	}
	return fallback
}

// DisplayHistory writes a diagnostic dump of the history to w.
func (e *Engine) DisplayHistory(w io.Writer) {
	fmt.Fprintln(w, "History:")
	for i, ent := range e.history {
		marker := "R"
		if i < e.cursor {
			marker = "U"
		}
		cached := ""
		if ent.Cached() {
			cached = " [Cached]"
		}
		fmt.Fprintf(w, "  [%04d]-[%s] User:%d Time:%d %s%s\n",
			i, marker, ent.UserID(), ent.Timestamp(), ent.Command(), cached)
	}
	fmt.Fprintf(w, "Current Index: %d\n", e.cursor)
}

func (e *Engine) index(ent *Entry) {
	e.stampMu.Lock()
	e.byStamp[ent.timestamp] = ent
	e.stampMu.Unlock()
}

func (e *Engine) unindex(ent *Entry) {
	e.stampMu.Lock()
	delete(e.byStamp, ent.timestamp)
	e.stampMu.Unlock()
}

func (e *Engine) lookupStamp(ts uint64) (*Entry, bool) {
	e.stampMu.Lock()
	defer e.stampMu.Unlock()
	ent, ok := e.byStamp[ts]
	return ent, ok
}

func (e *Engine) stopWorkers() {
	e.qmu.Lock()
	e.done = true
	e.qmu.Unlock()
	e.qcond.Broadcast()
	e.wg.Wait()
}

// Close shuts the engine down: saves the manifest when AutoLoadSave is
// set, stops the watcher, signals the workers and joins them. Jobs
// already queued run to completion. Idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}

	var saveErr error
	if e.persistent() && e.cfg.AutoLoadSave {
		saveErr = e.SaveTimestamps()
		if saveErr != nil {
			e.log.Error("save timestamps at close failed",
				slog.String("error", saveErr.Error()))
		}
	}

	e.closed = true
	e.stopWatcher()
	if e.persistent() {
		e.stopWorkers()
	}
	return saveErr
}
