package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"tabular-qa/cdmcheck/pkg/validation"
)

// ProgressReporter reports per-table validation progress.
type ProgressReporter interface {
	Start(total int)
	Observe(p validation.Progress)
	Finish()
	Error(err error)
}

// SimpleProgress renders a text progress bar over the tables of a run.
type SimpleProgress struct {
	mu       sync.Mutex
	total    int
	done     int
	records  int
	current  string
	started  time.Time
	writer   io.Writer
	finished bool
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) *SimpleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{writer: w}
}

// Start resets the reporter for a run over total tables.
func (p *SimpleProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.records = 0
	p.current = ""
	p.finished = false
	p.started = time.Now()
}

// Observe is a validation.WithProgress hook. It is safe for concurrent use.
func (p *SimpleProgress) Observe(ev validation.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		p.total = ev.Total
		p.started = time.Now()
	}
	if ev.Finished {
		p.done++
		p.records += ev.Records
	}
	p.current = ev.Table
	p.render()
}

// Finish completes the bar and moves to a new line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true
	p.done = p.total
	p.current = ""
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.done) / float64(p.total) * 100
	barWidth := 30
	filled := int(float64(barWidth) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	elapsed := time.Since(p.started).Round(time.Millisecond)

	line := fmt.Sprintf("\rTables: [%s] %d/%d, %d error(s), %s", bar, p.done, p.total, p.records, elapsed)
	if p.current != "" {
		line += " " + p.current
	}
	fmt.Fprint(p.writer, line)
}
