// Package events implements the progress/outcome channel between the
// transfer engine and whatever front end consumes it (CLI today).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prosftp/prosftp/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	// Transfer lifecycle events
	EventTransferQueued    EventType = "transfer_queued"    // Task created
	EventTransferStarted   EventType = "transfer_started"   // Bytes started moving
	EventTransferProgress  EventType = "transfer_progress"  // Throttled progress update
	EventTransferCompleted EventType = "transfer_completed" // Terminal: success
	EventTransferFailed    EventType = "transfer_failed"    // Terminal: error
	EventTransferCancelled EventType = "transfer_cancelled" // Terminal: user cancel
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// TransferEvent carries progress and terminal outcomes for a transfer task.
// For a given TaskID, BytesDone is non-decreasing across progress events and
// exactly one terminal event (Completed/Failed/Cancelled) is published, after
// all progress events.
type TransferEvent struct {
	BaseEvent
	TaskID     string // Unique task ID
	BatchID    string // Set when the task belongs to a batch operation
	Kind       string // "upload_file", "upload_folder", "download_file", "download_folder"
	Name       string // Display name (file or folder basename)
	Stage      string // "compress", "transfer", "extract", "cleanup"
	BytesDone  int64
	BytesTotal int64
	Speed      float64 // bytes/sec, EMA-smoothed
	Err        error   // Set on EventTransferFailed
}

// LogEvent represents log messages routed through the bus (cleanup warnings,
// stage transitions) so a consumer can show a status log.
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	TaskID  string
	Err     error
}

// Bus manages event subscriptions and publishing.
// Publish never blocks: a subscriber that stops draining loses events rather
// than wedging the transfer worker.
type Bus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewBus creates a new event bus with the specified per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. When a
// subscriber's buffer is full, progress and log events are dropped, but a
// terminal transfer event displaces the oldest buffered event instead so
// every task's outcome reaches even a stalled consumer.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		b.send(ch, event)
	}
	for _, ch := range b.all {
		b.send(ch, event)
	}
}

func (b *Bus) send(ch chan Event, event Event) {
	select {
	case ch <- event:
		return
	default:
	}
	if !isTerminal(event) {
		b.dropped.Add(1)
		return
	}
	for {
		select {
		case ch <- event:
			return
		case <-ch:
			// Shed the oldest buffered event to make room.
			b.dropped.Add(1)
		}
	}
}

func isTerminal(event Event) bool {
	switch event.Type() {
	case EventTransferCompleted, EventTransferFailed, EventTransferCancelled:
		return true
	}
	return false
}

// PublishLog is a convenience method for publishing log events.
func (b *Bus) PublishLog(level LogLevel, message, taskID string, err error) {
	b.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
		Level:     level,
		Message:   message,
		TaskID:    taskID,
		Err:       err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subs := b.subscribers[eventType]
	for i, subCh := range subs {
		if subCh == ch {
			subs[i] = subs[len(subs)-1]
			b.subscribers[eventType] = subs[:len(subs)-1]
			break
		}
	}
}

// UnsubscribeAll removes a channel registered via SubscribeAll.
func (b *Bus) UnsubscribeAll(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for i, subCh := range b.all {
		if subCh == ch {
			b.all[i] = b.all[len(b.all)-1]
			b.all = b.all[:len(b.all)-1]
			break
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped due to full buffers.
func (b *Bus) DroppedEventCount() int64 {
	return b.dropped.Load()
}
