// Package leaktest checks that a test leaves no goroutines behind: spawned
// backend readers, dispatch workers, metrics servers.
package leaktest

import (
	"runtime"
	"time"
)

// TB is the part of testing.TB the detector needs
type TB interface {
	Helper()
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Detector compares goroutine counts before and after a test body.
type Detector struct {
	t              TB
	initial        int
	allowedGrowth  int
	samples        int
	sampleInterval time.Duration
	settle         time.Duration
}

// New creates a detector. Call Start before the code under test and Check
// after it.
func New(t TB) *Detector {
	return &Detector{
		t:              t,
		samples:        5,
		sampleInterval: 50 * time.Millisecond,
		settle:         50 * time.Millisecond,
	}
}

// AllowGrowth tolerates n extra goroutines, for example a pooled HTTP
// connection that outlives the test
func (d *Detector) AllowGrowth(n int) *Detector {
	d.allowedGrowth = n
	return d
}

// Start records the baseline goroutine count
func (d *Detector) Start() *Detector {
	time.Sleep(d.settle)
	d.initial = runtime.NumGoroutine()
	return d
}

// Check fails the test if the goroutine count stays above the baseline.
// It samples several times and keeps the lowest count, since goroutines
// that are shutting down may still be counted.
func (d *Detector) Check() {
	d.t.Helper()

	lowest := runtime.NumGoroutine()
	for i := 0; i < d.samples && lowest-d.initial > d.allowedGrowth; i++ {
		time.Sleep(d.sampleInterval)
		if n := runtime.NumGoroutine(); n < lowest {
			lowest = n
		}
	}

	leaked := lowest - d.initial
	if leaked <= d.allowedGrowth {
		return
	}

	buf := make([]byte, 1<<20)
	buf = buf[:runtime.Stack(buf, true)]
	d.t.Errorf("goroutine leak: started with %d, ended with %d (allowed growth %d)\n%s",
		d.initial, lowest, d.allowedGrowth, buf)
}
