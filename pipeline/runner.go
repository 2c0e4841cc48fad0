package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/zcm58/fpvs-analysis/eegio"
	"github.com/zcm58/fpvs-analysis/epochs"
	"github.com/zcm58/fpvs-analysis/events"
	"github.com/zcm58/fpvs-analysis/logging"
	"github.com/zcm58/fpvs-analysis/preprocess"
)

// ErrBusy is returned when a start or detect request arrives while a
// worker already holds the run slot.
var ErrBusy = errors.New("a processing run is already active")

// State is the runner's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runner owns the single background worker that processes a batch of
// recordings. At most one worker is alive at a time; the standalone
// detection operation shares the same exclusive slot. All worker output
// flows through the message queue, never through shared state.
type Runner struct {
	slot     *semaphore.Weighted
	state    atomic.Int32
	cancel   atomic.Bool
	messages chan Message
	logger   logging.Logger
}

// NewRunner returns an idle runner with an empty message queue.
func NewRunner() *Runner {
	return &Runner{
		slot:     semaphore.NewWeighted(1),
		messages: make(chan Message, 256),
		logger:   logging.WithFields(logging.Fields{"component": "pipeline"}),
	}
}

// Messages returns the queue the worker posts on. Consume it on a timer
// tick; the worker blocks once the buffer fills.
func (r *Runner) Messages() <-chan Message { return r.messages }

// State returns the current lifecycle state.
func (r *Runner) State() State { return State(r.state.Load()) }

// Cancel asks the worker to stop before its next file. There is no
// mid-file cancellation.
func (r *Runner) Cancel() { r.cancel.Store(true) }

// Reset returns a finished runner to idle. No-op while running.
func (r *Runner) Reset() {
	if r.State() != StateRunning {
		r.state.Store(int32(StateIdle))
	}
}

// Start validates the configuration, expands the input list, and launches
// the worker goroutine. It returns ErrBusy if a worker is already active,
// and a configuration error before any processing begins.
func (r *Runner) Start(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	files, err := ExpandInputs(cfg.Inputs)
	if err != nil {
		return fmt.Errorf("resolve inputs: %w", err)
	}
	if !r.slot.TryAcquire(1) {
		return ErrBusy
	}
	r.cancel.Store(false)
	r.state.Store(int32(StateRunning))
	go r.run(cfg, files)
	return nil
}

// Detect loads one representative recording and reports the events and
// label vocabulary it contains, without preprocessing. It shares the
// exclusive worker slot with Start.
func (r *Runner) Detect(path string, strategy events.Strategy, triggerChannel string) (*events.Result, error) {
	if triggerChannel == "" {
		triggerChannel = preprocess.DefaultTriggerChannel
	}
	if !r.slot.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer r.slot.Release(1)

	rec, err := eegio.Load(path, triggerChannel)
	if err != nil {
		return nil, err
	}
	return events.Extract(rec, strategy, triggerChannel)
}

func (r *Runner) run(cfg Config, files []string) {
	defer r.slot.Release(1)
	defer r.send(Message{Type: MessageDone})
	defer func() {
		if rec := recover(); rec != nil {
			r.state.Store(int32(StateFailed))
			r.send(Message{
				Type:  MessageError,
				Text:  fmt.Sprintf("processing aborted: %v", rec),
				Trace: string(debug.Stack()),
			})
		}
	}()

	r.logf("Starting batch of %d file(s)", len(files))
	sets := make(map[string][]*epochs.Set)
	processed := 0
	for i, path := range files {
		if r.cancel.Load() {
			r.logf("Cancelled after %d of %d file(s)", i, len(files))
			break
		}
		res := r.processFile(path, cfg, sets)
		if res.Skip != "" {
			r.logf("Skipping %s: %s", filepath.Base(path), res.Skip)
		} else {
			processed++
			r.logf("Finished %s: %d epoch(s) across %d condition(s)",
				filepath.Base(path), res.Epochs, res.Labels)
		}
		r.send(Message{Type: MessageProgress, Current: i + 1, Total: len(files)})
	}
	r.logf("Batch complete: %d of %d file(s) contributed", processed, len(files))

	r.send(Message{Type: MessageResult, Sets: sets})
	r.state.Store(int32(StateSucceeded))
}

// FileResult is the per-file outcome of one pass through the stage
// sequence. A non-empty Skip means the file contributed nothing; skips are
// expected conditions, never run-fatal.
type FileResult struct {
	Path   string
	Epochs int
	Labels int
	Skip   string
}

func (r *Runner) processFile(path string, cfg Config, sets map[string][]*epochs.Set) FileResult {
	name := filepath.Base(path)
	res := FileResult{Path: path}
	r.logf("Processing %s", name)

	rec, err := eegio.Load(path, cfg.Preprocess.TriggerChannel)
	if err != nil {
		res.Skip = err.Error()
		return res
	}

	preprocess.Run(rec, cfg.Preprocess)

	result, err := events.Extract(rec, cfg.Strategy, cfg.Preprocess.TriggerChannel)
	if err != nil {
		res.Skip = fmt.Sprintf("event extraction failed: %v", err)
		return res
	}
	if len(result.Events) == 0 {
		res.Skip = "no events found"
		return res
	}

	byLabel := epochs.SegmentAll(rec, result, cfg.IDMap, cfg.Window, cfg.Preprocess.TriggerChannel)
	for label, set := range byLabel {
		sets[label] = append(sets[label], set)
		res.Epochs += len(set.Epochs)
	}
	res.Labels = len(byLabel)
	if res.Epochs == 0 {
		res.Skip = "no epochs for any configured condition"
		return res
	}

	if cfg.SavePreprocessed {
		out := eegio.PreprocPath(path)
		if err := eegio.SavePreprocessed(rec, out); err != nil {
			r.logf("Could not save preprocessed copy of %s: %v", name, err)
		} else {
			r.logf("Saved preprocessed signals to %s", out)
		}
	}
	return res
}

// logf logs through the component logger and mirrors the line onto the
// message queue for the consumer.
func (r *Runner) logf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	r.logger.Info(text)
	r.send(Message{Type: MessageLog, Text: text})
}

func (r *Runner) send(msg Message) {
	r.messages <- msg
}
