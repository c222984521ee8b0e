package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pixscale/encoder"
	"pixscale/models"
)

// fakeConverter records concurrency and fails jobs whose source is in fail
type fakeConverter struct {
	delay    time.Duration
	fail     map[string]bool
	inFlight int32
	maxSeen  int32
	calls    int32

	mu      sync.Mutex
	started []string
}

func (f *fakeConverter) Invoke(ctx context.Context, desc models.JobDescriptor) models.JobOutcome {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	atomic.AddInt32(&f.calls, 1)
	for {
		old := atomic.LoadInt32(&f.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxSeen, old, n) {
			break
		}
	}

	f.mu.Lock()
	f.started = append(f.started, desc.SourcePath)
	f.mu.Unlock()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return models.JobOutcome{Descriptor: desc, Status: models.StatusFailure, ExitCode: -1, Output: ctx.Err().Error()}
	}

	if f.fail[desc.SourcePath] {
		return models.JobOutcome{Descriptor: desc, Status: models.StatusFailure, ExitCode: 1, Output: "boom"}
	}
	return models.JobOutcome{Descriptor: desc, Status: models.StatusSuccess}
}

func makeJobs(n int) []models.JobDescriptor {
	jobs := make([]models.JobDescriptor, n)
	for i := range jobs {
		jobs[i] = models.JobDescriptor{
			SourcePath:      fmt.Sprintf("/in/%02d.svg", i),
			Scale:           "mdpi",
			TargetSize:      48,
			DestinationPath: fmt.Sprintf("/out/drawable-mdpi/%02d.png", i),
			FileType:        "svg",
		}
	}
	return jobs
}

func failedSources(s models.BatchSummary) []string {
	var out []string
	for _, o := range s.Failed {
		out = append(out, o.Descriptor.SourcePath)
	}
	sort.Strings(out)
	return out
}

func TestRunLimitOne(t *testing.T) {
	conv := &fakeConverter{delay: 5 * time.Millisecond}
	jobs := makeJobs(5)

	summary := Run(context.Background(), jobs, 1, conv, nil)
	if summary.TotalJobs != 5 {
		t.Errorf("TotalJobs = %d, want 5", summary.TotalJobs)
	}
	if conv.maxSeen != 1 {
		t.Errorf("max concurrent = %d, want 1", conv.maxSeen)
	}
	if conv.calls != 5 {
		t.Errorf("converter calls = %d, want 5", conv.calls)
	}
	for i, src := range conv.started {
		if src != jobs[i].SourcePath {
			t.Errorf("admission %d = %s, want %s (FIFO)", i, src, jobs[i].SourcePath)
		}
	}
}

func TestRunRespectsLimit(t *testing.T) {
	for _, limit := range []int{2, 3, 4} {
		conv := &fakeConverter{delay: 10 * time.Millisecond}
		Run(context.Background(), makeJobs(12), limit, conv, nil)
		if int(conv.maxSeen) > limit {
			t.Errorf("limit %d: saw %d concurrent jobs", limit, conv.maxSeen)
		}
		if conv.calls != 12 {
			t.Errorf("limit %d: converter calls = %d, want 12", limit, conv.calls)
		}
	}
}

func TestRunLimitDoesNotChangeOutcomes(t *testing.T) {
	jobs := makeJobs(9)
	fail := map[string]bool{jobs[1].SourcePath: true, jobs[4].SourcePath: true, jobs[8].SourcePath: true}

	reference := Run(context.Background(), jobs, len(jobs), &fakeConverter{delay: time.Millisecond, fail: fail}, nil)
	want := failedSources(reference)
	if len(want) != 3 {
		t.Fatalf("reference failures = %v", want)
	}

	for limit := 1; limit <= len(jobs); limit++ {
		s := Run(context.Background(), jobs, limit, &fakeConverter{delay: time.Millisecond, fail: fail}, nil)
		if s.TotalJobs != reference.TotalJobs {
			t.Errorf("limit %d: TotalJobs = %d", limit, s.TotalJobs)
		}
		got := failedSources(s)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("limit %d: failures = %v, want %v", limit, got, want)
		}
	}
}

func TestRunLimitAboveJobCount(t *testing.T) {
	conv := &fakeConverter{delay: 5 * time.Millisecond}
	s := Run(context.Background(), makeJobs(3), 64, conv, nil)
	if s.TotalJobs != 3 || conv.calls != 3 {
		t.Errorf("TotalJobs = %d, calls = %d", s.TotalJobs, conv.calls)
	}
}

func TestRunDefaultLimit(t *testing.T) {
	conv := &fakeConverter{delay: time.Millisecond}
	s := Run(context.Background(), makeJobs(4), 0, conv, nil)
	if s.TotalJobs != 4 {
		t.Errorf("TotalJobs = %d", s.TotalJobs)
	}
	if int(conv.maxSeen) > runtime.NumCPU() {
		t.Errorf("saw %d concurrent jobs on %d CPUs", conv.maxSeen, runtime.NumCPU())
	}
}

func TestRunOnJobDoneExactlyOnce(t *testing.T) {
	jobs := makeJobs(20)
	seen := make(map[string]int)
	calls := 0

	s := Run(context.Background(), jobs, 4, &fakeConverter{delay: time.Millisecond}, func(o models.JobOutcome) {
		// runs on the Run goroutine, no locking needed
		calls++
		seen[o.Descriptor.SourcePath]++
	})

	if calls != s.TotalJobs {
		t.Errorf("onDone calls = %d, TotalJobs = %d", calls, s.TotalJobs)
	}
	for _, j := range jobs {
		if seen[j.SourcePath] != 1 {
			t.Errorf("%s reported %d times", j.SourcePath, seen[j.SourcePath])
		}
	}
}

func TestRunEmpty(t *testing.T) {
	called := false
	s := Run(context.Background(), nil, 4, &fakeConverter{}, func(models.JobOutcome) { called = true })
	if s.TotalJobs != 0 || s.FailedCount() != 0 || s.Elapsed != 0 {
		t.Errorf("summary = %+v", s)
	}
	if called {
		t.Error("onDone called for empty batch")
	}
}

func TestRunAllFail(t *testing.T) {
	jobs := makeJobs(6)
	fail := make(map[string]bool)
	for _, j := range jobs {
		fail[j.SourcePath] = true
	}
	s := Run(context.Background(), jobs, 2, &fakeConverter{fail: fail}, nil)
	if s.FailedCount() != s.TotalJobs {
		t.Errorf("failed = %d, total = %d", s.FailedCount(), s.TotalJobs)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)
	jobs := makeJobs(8)
	done := 0

	s := Run(ctx, jobs, 2, &fakeConverter{delay: time.Hour}, func(models.JobOutcome) {
		done++
	})

	// the first outcome only arrives after cancel, so everything fails
	if s.TotalJobs != 8 || done != 8 {
		t.Errorf("TotalJobs = %d, onDone = %d", s.TotalJobs, done)
	}
	if s.FailedCount() != 8 {
		t.Errorf("failed = %d, want 8", s.FailedCount())
	}
}

type panicky struct{}

func (panicky) Invoke(context.Context, models.JobDescriptor) models.JobOutcome {
	panic("converter exploded")
}

func TestRunRecoversPanics(t *testing.T) {
	s := Run(context.Background(), makeJobs(3), 2, panicky{}, nil)
	if s.FailedCount() != 3 {
		t.Errorf("failed = %d, want 3", s.FailedCount())
	}
}

func TestRunElapsed(t *testing.T) {
	s := Run(context.Background(), makeJobs(2), 1, &fakeConverter{delay: 20 * time.Millisecond}, nil)
	if s.Elapsed < 40*time.Millisecond {
		t.Errorf("Elapsed = %v, want at least 40ms", s.Elapsed)
	}
}

// writeScript creates an executable converter stub
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converters need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fakeconv")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunWithFailingProcess(t *testing.T) {
	script := writeScript(t, "exit 1")
	reg := encoder.NewRegistry()
	if err := reg.Set("svg", script+" %INPUT% %SIZE% %OUTPUT%"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	inv, err := reg.NewInvoker("svg")
	if err != nil {
		t.Fatalf("NewInvoker: %v", err)
	}

	s := Run(context.Background(), makeJobs(5), 2, inv, nil)
	if s.FailedCount() != 5 {
		t.Errorf("failed = %d, want 5", s.FailedCount())
	}
	for _, o := range s.Failed {
		if o.ExitCode != 1 {
			t.Errorf("exit code = %d, want 1", o.ExitCode)
		}
	}
}

func TestRunWithRealProcesses(t *testing.T) {
	script := writeScript(t, `printf '%s' "$2" > "$3"`)
	reg := encoder.NewRegistry()
	if err := reg.Set("svg", script+" %INPUT% %SIZE% %OUTPUT%"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	inv, err := reg.NewInvoker("svg")
	if err != nil {
		t.Fatalf("NewInvoker: %v", err)
	}

	out := t.TempDir()
	jobs := makeJobs(6)
	for i := range jobs {
		jobs[i].DestinationPath = filepath.Join(out, filepath.Base(jobs[i].DestinationPath))
	}

	s := Run(context.Background(), jobs, 3, inv, nil)
	if s.FailedCount() != 0 {
		t.Fatalf("unexpected failures: %+v", s.Failed)
	}
	for _, j := range jobs {
		if _, err := os.Stat(j.DestinationPath); err != nil {
			t.Errorf("missing output %s", j.DestinationPath)
		}
	}
}

func TestAggregator(t *testing.T) {
	clock := time.Unix(1000, 0)
	a := NewAggregator(3)
	a.now = func() time.Time { return clock }

	a.Start()
	clock = clock.Add(2 * time.Second)
	a.Add(models.JobOutcome{Status: models.StatusSuccess})
	a.Start() // ignored
	clock = clock.Add(time.Second)
	a.Add(models.JobOutcome{Status: models.StatusFailure, ExitCode: 2})

	if a.Completed() != 2 || a.FailedCount() != 1 {
		t.Errorf("completed = %d, failed = %d", a.Completed(), a.FailedCount())
	}
	s := a.Summary()
	if s.TotalJobs != 3 || s.Elapsed != 3*time.Second {
		t.Errorf("summary = %+v", s)
	}
	if s.String() != "Finished 3 conversions in 3 seconds" {
		t.Errorf("String() = %q", s.String())
	}
}
