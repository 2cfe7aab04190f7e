// Package transfer moves files and folders between the local machine and a
// connected remote host, one task at a time, reporting progress over the
// event bus.
package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskKind identifies what a task moves and in which direction.
type TaskKind string

const (
	KindUploadFile     TaskKind = "upload_file"
	KindUploadFolder   TaskKind = "upload_folder"
	KindDownloadFile   TaskKind = "download_file"
	KindDownloadFolder TaskKind = "download_folder"
)

// TaskState represents the current state of a transfer task.
type TaskState string

const (
	TaskQueued    TaskState = "queued"    // Created, not yet moving bytes
	TaskActive    TaskState = "active"    // Transferring (or compressing/extracting)
	TaskCompleted TaskState = "completed" // Terminal: success
	TaskFailed    TaskState = "failed"    // Terminal: error
	TaskCancelled TaskState = "cancelled" // Terminal: cancelled by caller
)

// Task is a single upload or download.
// Thread-safe: use the provided methods to read and update state.
type Task struct {
	ID   string
	Kind TaskKind

	Name    string // Display name (file or folder basename)
	Source  string // Local path (uploads) or remote path (downloads)
	Dest    string // Remote directory (uploads) or local directory (downloads)
	BatchID string // Groups tasks created by a batch operation, empty otherwise

	state      TaskState
	bytesDone  int64
	bytesTotal int64
	speed      float64 // bytes/sec, EMA-smoothed
	err        error

	// Speed calculation internals
	lastBytes      int64
	lastUpdateTime time.Time

	CreatedAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// newTask creates a task in TaskQueued state. Its context is derived from
// parent, so cancelling either the parent or the task itself stops the
// transfer at the next chunk boundary.
func newTask(parent context.Context, kind TaskKind, name, source, dest string) *Task {
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Source:    source,
		Dest:      dest,
		state:     TaskQueued,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// State returns the current state.
func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Task) setState(state TaskState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if state == TaskActive && t.startedAt.IsZero() {
		t.startedAt = time.Now()
	}
	if state == TaskCompleted || state == TaskFailed || state == TaskCancelled {
		t.completedAt = time.Now()
	}
}

// Bytes returns bytes transferred so far and the payload total.
// The total is 0 until the task has sized its payload.
func (t *Task) Bytes() (done, total int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bytesDone, t.bytesTotal
}

func (t *Task) setTotal(total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bytesTotal = total
}

// updateBytes records progress and refreshes the EMA-smoothed speed.
// bytesDone never decreases for the lifetime of the task.
func (t *Task) updateBytes(bytesDone int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if bytesDone < t.bytesDone {
		return
	}
	now := time.Now()
	t.bytesDone = bytesDone

	// First real progress: establish a baseline, no rate yet.
	if t.lastBytes == 0 && bytesDone > 0 {
		t.lastBytes = bytesDone
		t.lastUpdateTime = now
		return
	}

	if bytesDone > t.lastBytes {
		elapsed := now.Sub(t.lastUpdateTime).Seconds()
		if elapsed > 0.1 {
			instantRate := float64(bytesDone-t.lastBytes) / elapsed

			// EMA smoothing: 25% weight to the new sample.
			const alpha = 0.25
			if t.speed > 0 {
				t.speed = alpha*instantRate + (1-alpha)*t.speed
			} else {
				t.speed = instantRate
			}
			t.lastBytes = bytesDone
			t.lastUpdateTime = now
		}
	}
}

// Speed returns the smoothed transfer speed in bytes/sec.
func (t *Task) Speed() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speed
}

// Err returns the task's error, set when the task failed.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Task) setErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Cancel requests cooperative cancellation. The transfer stops at the next
// chunk boundary; the session stays connected and usable.
func (t *Task) Cancel() {
	t.cancel()
}

// Context returns the task's context for cancellation checking.
func (t *Task) Context() context.Context {
	return t.ctx
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	state := t.State()
	return state == TaskCompleted || state == TaskFailed || state == TaskCancelled
}

// Duration returns how long the task spent transferring. Zero until the
// task has started; measured up to now while still running.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startedAt.IsZero() {
		return 0
	}
	end := t.completedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(t.startedAt)
}
