package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"tabular-qa/cdmcheck/pkg/validation"
)

func TestSimpleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Start(2)
	p.Observe(validation.Progress{Table: "person", Index: 0, Total: 2})
	p.Observe(validation.Progress{Table: "person", Index: 0, Total: 2, Finished: true, Records: 3})

	out := buf.String()
	if !strings.Contains(out, "1/2") {
		t.Errorf("output should show 1/2 tables:\n%q", out)
	}
	if !strings.Contains(out, "3 error(s)") {
		t.Errorf("output should count records:\n%q", out)
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish() should end the line")
	}
	if !strings.Contains(buf.String(), "2/2") {
		t.Error("Finish() should render a complete bar")
	}

	n := buf.Len()
	p.Finish()
	if buf.Len() != n {
		t.Error("second Finish() should not render")
	}
}

func TestSimpleProgress_TotalFromEvents(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)

	p.Observe(validation.Progress{Table: "concept", Total: 4})
	if !strings.Contains(buf.String(), "0/4") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Start(50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Observe(validation.Progress{Index: i, Total: 50, Finished: true})
		}(i)
	}
	wg.Wait()

	if p.done != 50 {
		t.Errorf("done = %d, want 50", p.done)
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Error(errors.New("load failed"))

	if !strings.Contains(buf.String(), "Error: load failed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSimpleProgress_NoTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Start(0)
	p.render()
	if buf.Len() != 0 {
		t.Errorf("render with zero total wrote %q", buf.String())
	}
}
