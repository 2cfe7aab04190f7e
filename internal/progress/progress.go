// Package progress renders transfer progress on the terminal, with a single
// bar for one-off transfers and a multi-bar view for batches.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface for reporting the progress of one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// BarReporter renders a single progress bar on stderr.
type BarReporter struct {
	bar *progressbar.ProgressBar
}

// NewBarReporter creates a single-bar reporter.
func NewBarReporter() *BarReporter {
	return &BarReporter{}
}

// Start initializes the progress bar with total size and description.
func (p *BarReporter) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update moves the bar to the current byte position.
func (p *BarReporter) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *BarReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *BarReporter) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *BarReporter) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpReporter discards all progress (silent and scripted runs).
type NoOpReporter struct{}

// NewNoOpReporter creates a reporter that does nothing.
func NewNoOpReporter() *NoOpReporter {
	return &NoOpReporter{}
}

func (p *NoOpReporter) Start(total int64, description string) {}
func (p *NoOpReporter) Update(current int64)                  {}
func (p *NoOpReporter) Finish()                               {}
func (p *NoOpReporter) Error(err error)                       {}
func (p *NoOpReporter) SetDescription(desc string)            {}
