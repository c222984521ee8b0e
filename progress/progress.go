// Package progress renders a completion bar for a running batch.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"pixscale/models"
)

const (
	defaultWidth = 40
	defaultLabel = "Generating icons"
)

// Reporter counts finished jobs and draws a bar with an ETA. On a terminal
// the line is redrawn in place; otherwise a line is written every 10%.
type Reporter struct {
	mu        sync.Mutex
	w         io.Writer
	total     int
	completed int
	failed    int
	width     int
	label     string
	tty       bool
	start     time.Time
	now       func() time.Time
	lastStep  int
	done      bool
}

type Option func(*Reporter)

// WithWidth sets the bar width in characters
func WithWidth(width int) Option {
	return func(r *Reporter) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithLabel replaces the text shown before the ETA
func WithLabel(label string) Option {
	return func(r *Reporter) { r.label = label }
}

// WithTTY forces in-place redrawing on or off
func WithTTY(tty bool) Option {
	return func(r *Reporter) { r.tty = tty }
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// New creates a reporter for total jobs. The clock starts immediately.
func New(w io.Writer, total int, opts ...Option) *Reporter {
	r := &Reporter{
		w:        w,
		total:    total,
		width:    defaultWidth,
		label:    defaultLabel,
		tty:      isTerminal(w),
		now:      time.Now,
		lastStep: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()

	if total == 0 {
		r.done = true
		fmt.Fprintln(r.w, r.render())
	}
	return r
}

// Done is the per-job callback handed to batch.Run
func (r *Reporter) Done(o models.JobOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}

	r.completed++
	if o.Failed() {
		r.failed++
	}
	finished := r.completed >= r.total
	line := r.render()

	if r.tty {
		fmt.Fprint(r.w, "\r"+line)
		if finished {
			fmt.Fprintln(r.w)
		}
	} else if step := r.percent() / 10; step > r.lastStep || finished {
		r.lastStep = step
		fmt.Fprintln(r.w, line)
	}
	r.done = finished
}

// Completed returns the number of jobs reported so far
func (r *Reporter) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Line returns the current rendering without writing it
func (r *Reporter) Line() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render()
}

func (r *Reporter) percent() int {
	if r.total <= 0 {
		return 100
	}
	return r.completed * 100 / r.total
}

// eta is elapsed × remaining / completed
func (r *Reporter) eta() string {
	if r.total <= 0 || r.completed >= r.total {
		return "0.0"
	}
	if r.completed == 0 {
		return "?"
	}
	elapsed := r.now().Sub(r.start).Seconds()
	remaining := float64(r.total - r.completed)
	return fmt.Sprintf("%.1f", elapsed*remaining/float64(r.completed))
}

func (r *Reporter) render() string {
	pct := r.percent()
	filled := pct * r.width / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", r.width-filled)

	line := fmt.Sprintf("%s: %ss remaining [%s] %3d%%", r.label, r.eta(), bar, pct)
	if r.failed > 0 {
		line += fmt.Sprintf(" (%d failed)", r.failed)
	}
	return line
}
