package phonograph

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// offline holds the state of offline render loop.
type offline struct {
	duration   time.Duration
	frames     int
	rendered   Bus
	onComplete atomic.Pointer[func()]
	started    atomic.Bool
	cancel     context.CancelFunc
	ctx        context.Context
	done       chan struct{}
	err        error
}

// NewOfflineContext creates context which renders duration of signal
// with its own loop, as fast as possible. Rendered signal is kept and
// available after Wait returns.
func NewOfflineContext(cfg DeviceConfig, duration time.Duration, options ...Option) (*Context, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("duration %v: %w", duration, ErrInvalidConfig)
	}
	c, err := newContext(Offline, cfg, options...)
	if err != nil {
		return nil, err
	}
	frames := int(math.Ceil(duration.Seconds()*float64(c.sampleRate) - 1e-6))
	ctx, cancel := context.WithCancel(context.Background())
	c.offline = &offline{
		duration: duration,
		frames:   frames,
		rendered: NewBus(cfg.Channels, frames),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	return c, nil
}

// SetOfflineRenderCompleteCallback sets the function which is called once
// on render goroutine after the last quantum was rendered. Wait returns
// after the callback. Panics of the callback are recovered and logged.
func (c *Context) SetOfflineRenderCompleteCallback(fn func()) error {
	if c.offline == nil {
		return fmt.Errorf("complete callback in %v mode: %w", c.mode, ErrInvalidState)
	}
	if fn == nil {
		c.offline.onComplete.Store(nil)
		return nil
	}
	c.offline.onComplete.Store(&fn)
	return nil
}

// StartOfflineRendering starts offline render loop. It can be started
// only once.
func (c *Context) StartOfflineRendering() error {
	if c.offline == nil {
		return fmt.Errorf("offline rendering in %v mode: %w", c.mode, ErrInvalidState)
	}
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.offline.started.CompareAndSwap(false, true) {
		return fmt.Errorf("offline rendering already started: %w", ErrInvalidState)
	}
	c.logger.WithFields(logrus.Fields{
		"duration": c.offline.duration,
		"frames":   c.offline.frames,
	}).Debug("offline rendering started")
	c.wg.Add(1)
	go c.runOffline()
	return nil
}

// Wait blocks until offline rendering is done. It returns
// context.Canceled if context was closed before all frames were rendered.
func (c *Context) Wait() error {
	if c.offline == nil || !c.offline.started.Load() {
		return fmt.Errorf("wait: %w", ErrInvalidState)
	}
	<-c.offline.done
	return c.offline.err
}

// Rendered returns offline rendered signal. It's nil until offline
// rendering is done.
func (c *Context) Rendered() Bus {
	if c.offline == nil || !c.offline.started.Load() {
		return nil
	}
	select {
	case <-c.offline.done:
		return c.offline.rendered
	default:
		return nil
	}
}

// runOffline renders all frames and calls complete callback. Callback
// runs after render loop has left the context wait group, so it can
// close the context.
func (c *Context) runOffline() {
	o := c.offline
	defer close(o.done)
	completed := c.renderOffline()
	c.wg.Done()
	if !completed {
		return
	}
	if fn := o.onComplete.Load(); fn != nil {
		c.call("offline complete", *fn)
	}
}

// renderOffline reports if every frame was rendered.
func (c *Context) renderOffline() bool {
	o := c.offline
	defer o.cancel()

	quantum := NewBus(len(o.rendered), c.quantumSize)
	start := time.Now()
	for pos := 0; pos < o.frames; pos += c.quantumSize {
		select {
		case <-o.ctx.Done():
			o.err = o.ctx.Err()
			c.logger.WithField("frames", pos).Debug("offline rendering interrupted")
			return false
		default:
		}
		c.renderQuantum(o.ctx, quantum)
		n := min(c.quantumSize, o.frames-pos)
		for ch := range o.rendered {
			copy(o.rendered[ch][pos:pos+n], quantum[ch][:n])
		}
	}
	c.logger.WithFields(logrus.Fields{
		"frames":  o.frames,
		"elapsed": time.Since(start),
	}).Debug("offline rendering done")
	return true
}

// stop interrupts offline loop. Context waits for the loop goroutine.
func (o *offline) stop() {
	o.cancel()
}
