package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"pixscale/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func withClock(c *fakeClock) Option {
	return func(r *Reporter) { r.now = c.now }
}

var ok = models.JobOutcome{Status: models.StatusSuccess}

func TestZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 0, WithTTY(false))
	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("zero-job batch should render 100%%, got %q", buf.String())
	}
	r.Done(ok)
	if r.Completed() != 0 {
		t.Errorf("Done after completion should be ignored")
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", buf.String())
	}
}

func TestETA(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	r := New(&buf, 4, WithTTY(false), withClock(clock))

	if !strings.Contains(r.Line(), "?s remaining") {
		t.Errorf("ETA before first completion: %q", r.Line())
	}

	clock.t = clock.t.Add(2 * time.Second)
	r.Done(ok)
	line := r.Line()
	if !strings.Contains(line, "6.0s remaining") {
		t.Errorf("ETA = %q, want 6.0s (2s × 3/1)", line)
	}
	if !strings.HasSuffix(line, " 25%") {
		t.Errorf("percentage in %q", line)
	}
}

func TestBarWidth(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 2, WithTTY(false), WithWidth(10))
	r.Done(ok)
	if !strings.Contains(r.Line(), "[#####-----]") {
		t.Errorf("bar = %q", r.Line())
	}
	r.Done(ok)
	if !strings.Contains(r.Line(), "[##########]") {
		t.Errorf("bar = %q", r.Line())
	}
}

func TestNonTTYSteps(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 20, WithTTY(false))
	for i := 0; i < 20; i++ {
		r.Done(ok)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 11 {
		t.Errorf("got %d lines, want 11 (one per 10%% step):\n%s", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[len(lines)-1], "100%") {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestTTYRedraw(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 3, WithTTY(true), WithLabel("Rendering"))
	for i := 0; i < 3; i++ {
		r.Done(ok)
	}
	out := buf.String()
	if strings.Count(out, "\r") != 3 {
		t.Errorf("expected 3 redraws, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("final redraw should end the line")
	}
	if !strings.Contains(out, "Rendering:") {
		t.Errorf("label missing: %q", out)
	}
}

func TestFailedCountShown(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, 2, WithTTY(false))
	r.Done(models.JobOutcome{Status: models.StatusFailure, ExitCode: 1})
	if !strings.Contains(r.Line(), "(1 failed)") {
		t.Errorf("line = %q", r.Line())
	}
}
