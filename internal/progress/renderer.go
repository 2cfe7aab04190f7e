package progress

import (
	"fmt"
	"os"
	"strings"

	"github.com/prosftp/prosftp/internal/events"
)

// Renderer consumes the event bus and drives the terminal UI: a single bar
// for one-off transfers, the mpb batch view for batch tasks, and plain
// lines for warnings routed over the bus.
type Renderer struct {
	bus   *events.Bus
	ch    <-chan events.Event
	done  chan struct{}
	quiet bool

	single    Reporter
	batch     *BatchUI
	batchSize int
	batchSeen int
}

// NewRenderer subscribes to bus. Call Start to begin rendering; after the
// bus is closed, Wait flushes whatever is still buffered.
func NewRenderer(bus *events.Bus, quiet bool) *Renderer {
	return &Renderer{
		bus:   bus,
		ch:    bus.SubscribeAll(),
		done:  make(chan struct{}),
		quiet: quiet,
	}
}

// SetBatchSize tells the renderer how many files an upcoming batch holds,
// for the [n/total] labels. Call before Start.
func (r *Renderer) SetBatchSize(n int) {
	r.batchSize = n
}

// Start begins consuming events in the background.
func (r *Renderer) Start() {
	go func() {
		defer close(r.done)
		for ev := range r.ch {
			r.handle(ev)
		}
	}()
}

// Wait blocks until the bus has been closed and every buffered event has
// rendered. Call it before printing the final exit status.
func (r *Renderer) Wait() {
	<-r.done
	if r.batch != nil {
		r.batch.Wait()
	}
}

func (r *Renderer) handle(ev events.Event) {
	switch e := ev.(type) {
	case *events.TransferEvent:
		if e.BatchID != "" {
			r.handleBatch(e)
		} else {
			r.handleSingle(e)
		}
	case *events.LogEvent:
		r.handleLog(e)
	}
}

func (r *Renderer) handleLog(e *events.LogEvent) {
	if r.quiet && e.Level < events.WarnLevel {
		return
	}
	if e.Level < events.InfoLevel {
		return
	}
	if e.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s: %v\n", strings.ToLower(e.Level.String()), e.Message, e.Err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s\n", e.Message)
}

func (r *Renderer) handleSingle(e *events.TransferEvent) {
	switch e.Type() {
	case events.EventTransferStarted:
		if r.quiet {
			r.single = NewNoOpReporter()
		} else {
			r.single = NewBarReporter()
		}
		r.single.Start(e.BytesTotal, directionArrow(e.Kind)+" "+e.Name)
	case events.EventTransferProgress:
		if r.single == nil {
			return
		}
		if e.Stage == "transfer" || e.Stage == "" {
			r.single.Update(e.BytesDone)
		} else {
			r.single.SetDescription(e.Stage + " " + e.Name)
		}
	case events.EventTransferCompleted:
		if r.single != nil {
			r.single.Update(e.BytesTotal)
			r.single.Finish()
			r.single = nil
		}
		if !r.quiet {
			fmt.Fprintf(os.Stderr, "✓ %s %s (%.1f MiB)\n",
				directionArrow(e.Kind), e.Name, float64(e.BytesTotal)/(1024*1024))
		}
	case events.EventTransferFailed:
		if r.single != nil {
			r.single.Error(e.Err)
			r.single = nil
		}
		fmt.Fprintf(os.Stderr, "✗ %s %s: %v\n", directionArrow(e.Kind), e.Name, e.Err)
	case events.EventTransferCancelled:
		r.single = nil
		fmt.Fprintf(os.Stderr, "✗ %s %s: cancelled\n", directionArrow(e.Kind), e.Name)
	}
}

func (r *Renderer) handleBatch(e *events.TransferEvent) {
	switch e.Type() {
	case events.EventTransferStarted:
		if r.batch == nil {
			total := r.batchSize
			if total == 0 {
				total = 1
			}
			r.batch = NewBatchUI(total)
		}
		r.batchSeen++
		r.batch.AddFileBar(r.batchSeen, e.TaskID, e.Name, e.BytesTotal, isDownload(e.Kind))
	case events.EventTransferProgress:
		if r.batch == nil {
			return
		}
		if bar, ok := r.batch.Bar(e.TaskID); ok {
			bar.UpdateBytes(e.BytesDone)
		}
	case events.EventTransferCompleted:
		r.completeBatchBar(e, nil)
	case events.EventTransferFailed:
		r.completeBatchBar(e, e.Err)
	case events.EventTransferCancelled:
		r.completeBatchBar(e, fmt.Errorf("cancelled"))
	}
}

func (r *Renderer) completeBatchBar(e *events.TransferEvent, err error) {
	if r.batch == nil {
		return
	}
	if bar, ok := r.batch.Bar(e.TaskID); ok {
		bar.Complete(err)
	}
}

func directionArrow(kind string) string {
	if isDownload(kind) {
		return "←"
	}
	return "→"
}

func isDownload(kind string) bool {
	return strings.HasPrefix(kind, "download")
}
