package phonograph

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// exclusiveWeight is acquired by render and commits. It's larger than
// any number of concurrent readers.
const exclusiveWeight = 1 << 20

// lockPollInterval is the pause between attempts of lockWithin.
const lockPollInterval = 20 * time.Microsecond

// graphLock guards committed topology. Render goroutine and commits hold
// it exclusively, traversals share it.
type graphLock struct {
	sem *semaphore.Weighted
}

func newGraphLock() *graphLock {
	return &graphLock{sem: semaphore.NewWeighted(exclusiveWeight)}
}

// lock waits for exclusive access.
func (l *graphLock) lock(ctx context.Context) error {
	return l.sem.Acquire(ctx, exclusiveWeight)
}

// lockWithin tries exclusive access and waits at most timeout for it.
// It polls instead of queueing in the semaphore, so a waiting render
// doesn't allocate and doesn't block readers behind it.
func (l *graphLock) lockWithin(timeout time.Duration) bool {
	if l.sem.TryAcquire(exclusiveWeight) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	deadline := time.Now().Add(timeout)
	for {
		time.Sleep(min(lockPollInterval, timeout))
		if l.sem.TryAcquire(exclusiveWeight) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
	}
}

func (l *graphLock) unlock() {
	l.sem.Release(exclusiveWeight)
}

// rlock waits for shared access.
func (l *graphLock) rlock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *graphLock) runlock() {
	l.sem.Release(1)
}

// RenderLock is the proof of holding the graph lock during a quantum.
// It is passed to Process and to render-side accessors of ports and
// params. It must not be retained after Process returns.
type RenderLock struct {
	ctx        *Context
	quantum    uint64
	frame      uint64
	frames     int
	sampleRate float64
}

// Context returns the rendering context.
func (r *RenderLock) Context() *Context {
	return r.ctx
}

// CurrentFrame returns the frame at the start of the quantum.
func (r *RenderLock) CurrentFrame() uint64 {
	return r.frame
}

// CurrentTime returns the time at the start of the quantum in seconds.
func (r *RenderLock) CurrentTime() float64 {
	return float64(r.frame) / r.sampleRate
}

// TimeAt returns the time of i-th frame of the quantum in seconds.
func (r *RenderLock) TimeAt(i int) float64 {
	return float64(r.frame+uint64(i)) / r.sampleRate
}

// SampleRate returns context sample rate.
func (r *RenderLock) SampleRate() int {
	return int(r.sampleRate)
}

// Frames returns number of frames in the quantum.
func (r *RenderLock) Frames() int {
	return r.frames
}
