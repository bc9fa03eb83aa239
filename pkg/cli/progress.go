package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ProgressReporter reports progress for long-running batch operations.
type ProgressReporter interface {
	Start(total int)
	Step(label string)
	Finish()
}

// SimpleProgress implements a line-per-step text progress reporter. Batch
// deployments are sequential and remote-bound, so a counter per document
// reads better in CI logs than a redrawn bar.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int
	current int
	writer  io.Writer
}

// NewProgressReporter creates a progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{writer: w}
}

// Start initializes the reporter with the total number of items.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
}

// Step reports one completed item.
func (p *SimpleProgress) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	fmt.Fprintf(p.writer, "[%d/%d] %s\n", p.current, p.total, label)
}

// Finish marks the run as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "done (%d/%d)\n", p.current, p.total)
}

// NopProgress discards all progress events. Used with --format json so the
// structured output stays machine-readable.
type NopProgress struct{}

func (NopProgress) Start(int)   {}
func (NopProgress) Step(string) {}
func (NopProgress) Finish()     {}
