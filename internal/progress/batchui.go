package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// BatchUI manages one progress bar per file for batch transfers using mpb.
// On a non-TTY it degrades to plain per-file text lines.
type BatchUI struct {
	progress   *mpb.Progress
	bars       sync.Map // taskID -> *FileBar
	isTerminal bool
	totalFiles int
}

// FileBar is the progress bar for a single file within a batch.
type FileBar struct {
	bar       *mpb.Bar
	ui        *BatchUI
	index     int
	name      string
	size      int64
	download  bool
	startTime time.Time

	lastUpdate time.Time
	lastBytes  int64
}

// NewBatchUI creates a batch UI for the given number of files.
func NewBatchUI(totalFiles int) *BatchUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableWindowsANSI(os.Stderr)
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &BatchUI{
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddFileBar registers a bar for one file. download selects the direction
// arrow in the label.
func (u *BatchUI) AddFileBar(index int, taskID, name string, size int64, download bool) *FileBar {
	fb := &FileBar{
		ui:         u,
		index:      index,
		name:       name,
		size:       size,
		download:   download,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	arrow := "→"
	if download {
		arrow = "←"
	}

	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s %s (%.1f MiB)",
					index, u.totalFiles, arrow, name,
					float64(size)/(1024*1024)), decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(os.Stderr, "Transferring [%d/%d]: %s %s (%.1f MiB)\n",
			index, u.totalFiles, arrow, name, float64(size)/(1024*1024))
	}

	u.bars.Store(taskID, fb)
	return fb
}

// Bar returns the bar registered for taskID, if any.
func (u *BatchUI) Bar(taskID string) (*FileBar, bool) {
	v, ok := u.bars.Load(taskID)
	if !ok {
		return nil, false
	}
	return v.(*FileBar), true
}

// UpdateBytes advances the bar. Updates are throttled and always feed
// elapsed time into mpb so the EWMA speed stays accurate.
func (f *FileBar) UpdateBytes(current int64) {
	if f.bar == nil {
		return
	}

	now := time.Now()
	elapsed := now.Sub(f.lastUpdate)

	const updateInterval = 300 * time.Millisecond
	if elapsed >= updateInterval {
		f.bar.EwmaIncrBy(int(current-f.lastBytes), elapsed)
		f.lastBytes = current
		f.lastUpdate = now
	}
}

// Complete finishes the bar and prints a one-line summary.
func (f *FileBar) Complete(err error) {
	elapsed := time.Since(f.startTime)
	speed := float64(f.size) / elapsed.Seconds() / (1024 * 1024)

	arrow := "→"
	if f.download {
		arrow = "←"
	}

	if err == nil {
		if f.bar != nil {
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true)
		}
		fmt.Fprintf(os.Stderr, "✓ %s %s (%.1f MiB, %s, %.1f MiB/s)\n",
			arrow, f.name, float64(f.size)/(1024*1024), elapsed.Round(time.Second), speed)
		return
	}

	if f.bar != nil {
		f.bar.Abort(true)
	}
	fmt.Fprintf(os.Stderr, "✗ %s %s: %v\n", arrow, f.name, err)
}

// Wait blocks until all bars have rendered their final state.
func (u *BatchUI) Wait() {
	u.progress.Wait()
}
