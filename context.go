package phonograph

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/metric"
)

// Mode defines what drives context rendering.
type Mode int

const (
	// Realtime context is rendered by audio device callback.
	Realtime Mode = iota
	// Offline context is rendered by its own loop as fast as possible.
	Offline
)

func (m Mode) String() string {
	if m == Offline {
		return "offline"
	}
	return "realtime"
}

const (
	// DefaultQuantumSize is the number of frames in a render quantum.
	DefaultQuantumSize = 128
	// DefaultChangeQueueSize is the capacity of pending changes queue.
	DefaultChangeQueueSize = 1024
	// DefaultEventQueueSize is the capacity of ended events queue.
	DefaultEventQueueSize = 256
)

// DefaultDevice selects the system default output device.
const DefaultDevice = -1

// DeviceConfig describes the output stream context renders for.
// DeviceIndex is only used by device backends which list devices.
type DeviceConfig struct {
	DeviceIndex int
	SampleRate  int
	Channels    int
}

// Context owns a node graph and renders it quantum by quantum.
//
// Graph methods are safe for concurrent use by control goroutines. They
// validate arguments synchronously and enqueue the change, which is
// committed by the render goroutine at the start of the next quantum or
// by SynchronizeConnections.
type Context struct {
	id              string
	name            string
	mode            Mode
	config          DeviceConfig
	sampleRate      int
	quantumSize     int
	lockTimeout     time.Duration
	metered         bool
	changeQueueSize int
	eventQueueSize  int
	logger          logrus.FieldLogger

	lock        *graphLock
	changes     chan change
	events      chan func()
	done        chan struct{}
	stopped     chan struct{}
	dispatching atomic.Bool
	wg          sync.WaitGroup
	closed      atomic.Bool

	frame   atomic.Uint64
	silent  atomic.Uint64
	dropped atomic.Uint64
	meter   func()

	// render goroutine state.
	quantum     uint64
	renderLock  RenderLock
	destination *DestinationNode
	pulls       []*BaseNode

	offline *offline
}

// NewRealtimeContext creates context which is rendered by a device
// calling RenderQuantum.
func NewRealtimeContext(cfg DeviceConfig, options ...Option) (*Context, error) {
	return newContext(Realtime, cfg, options...)
}

func newContext(mode Mode, cfg DeviceConfig, options ...Option) (*Context, error) {
	c := &Context{
		id:              xid.New().String(),
		mode:            mode,
		config:          cfg,
		sampleRate:      cfg.SampleRate,
		quantumSize:     DefaultQuantumSize,
		lockTimeout:     -1,
		changeQueueSize: DefaultChangeQueueSize,
		eventQueueSize:  DefaultEventQueueSize,
		lock:            newGraphLock(),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	for _, option := range options {
		option(c)
	}
	if c.name == "" {
		c.name = mode.String()
	}
	switch {
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("sample rate %d: %w", cfg.SampleRate, ErrInvalidConfig)
	case cfg.Channels < 1 || cfg.Channels > MaxChannels:
		return nil, fmt.Errorf("channels %d: %w", cfg.Channels, ErrInvalidConfig)
	case c.quantumSize <= 0:
		return nil, fmt.Errorf("quantum size %d: %w", c.quantumSize, ErrInvalidConfig)
	case c.changeQueueSize <= 0 || c.eventQueueSize <= 0:
		return nil, fmt.Errorf("queue size: %w", ErrInvalidConfig)
	}
	if c.lockTimeout < 0 {
		c.lockTimeout = c.quantumDuration() / 4
	}
	if c.logger == nil {
		c.logger = log.GetLogger()
	}
	c.logger = c.logger.WithFields(logrus.Fields{
		"context": c.name,
		"id":      c.id,
	})
	if c.metered {
		c.meter = metric.Silence(c)
	}
	c.changes = make(chan change, c.changeQueueSize)
	c.events = make(chan func(), c.eventQueueSize)
	c.renderLock = RenderLock{
		ctx:        c,
		frames:     c.quantumSize,
		sampleRate: float64(c.sampleRate),
	}
	c.destination = newDestinationNode(c, cfg.Channels)

	go c.dispatch()
	c.logger.WithFields(logrus.Fields{
		"mode":       mode,
		"sampleRate": c.sampleRate,
		"channels":   cfg.Channels,
		"quantum":    c.quantumSize,
	}).Debug("context created")
	return c, nil
}

// ID returns unique context id.
func (c *Context) ID() string {
	return c.id
}

// Name returns context name.
func (c *Context) Name() string {
	return c.name
}

// Mode returns context mode.
func (c *Context) Mode() Mode {
	return c.mode
}

// Config returns device config context was created with.
func (c *Context) Config() DeviceConfig {
	return c.config
}

// SampleRate returns context sample rate.
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// QuantumSize returns number of frames per quantum.
func (c *Context) QuantumSize() int {
	return c.quantumSize
}

// Destination returns the node device output is pulled from.
func (c *Context) Destination() *DestinationNode {
	return c.destination
}

// CurrentFrame returns number of rendered frames.
func (c *Context) CurrentFrame() uint64 {
	return c.frame.Load()
}

// CurrentTime returns rendered time in seconds.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / float64(c.sampleRate)
}

// SilentQuanta returns number of quanta rendered as silence because the
// graph lock was contended.
func (c *Context) SilentQuanta() uint64 {
	return c.silent.Load()
}

func (c *Context) quantumDuration() time.Duration {
	return time.Duration(float64(c.quantumSize) / float64(c.sampleRate) * float64(time.Second))
}

// frameAt converts context time to the first frame at or after it.
func (c *Context) frameAt(t float64) uint64 {
	if t <= 0 {
		return 0
	}
	return uint64(math.Ceil(t*float64(c.sampleRate) - 1e-6))
}

// RenderQuantum renders one quantum into out. It's the entry point for
// device callbacks and must be called from a single goroutine. Out must
// have at least QuantumSize frames, its channels are mixed from the
// destination input.
func (c *Context) RenderQuantum(out Bus) {
	c.renderQuantum(context.Background(), out)
}

func (c *Context) renderQuantum(ctx context.Context, out Bus) {
	if c.closed.Load() {
		out.Zero()
		return
	}
	if c.mode == Realtime {
		if !c.lock.lockWithin(c.lockTimeout) {
			c.skip(out)
			return
		}
	} else if err := c.lock.lock(ctx); err != nil {
		out.Zero()
		return
	}
	c.commit()
	c.render(out)
	c.lock.unlock()
}

// render pulls destination and automatic pull nodes.
func (c *Context) render(out Bus) {
	c.quantum++
	r := &c.renderLock
	r.quantum = c.quantum
	r.frame = c.frame.Load()

	c.destination.render(r)
	for _, n := range c.pulls {
		n.render(r)
	}
	out.CopyFrom(c.destination.inputs[0].store.bus)
	c.frame.Add(uint64(c.quantumSize))
}

// skip advances time without rendering.
func (c *Context) skip(out Bus) {
	out.Zero()
	c.frame.Add(uint64(c.quantumSize))
	c.silent.Add(1)
	if c.meter != nil {
		c.meter()
	}
}

// notify queues callback for event goroutine. It never blocks, events
// are dropped when queue is full.
func (c *Context) notify(fn func()) {
	select {
	case c.events <- fn:
	default:
		c.dropped.Add(1)
	}
}

func (c *Context) dispatch() {
	defer close(c.stopped)
	for {
		select {
		case fn := <-c.events:
			c.ended(fn)
		case <-c.done:
			for {
				select {
				case fn := <-c.events:
					c.ended(fn)
				default:
					return
				}
			}
		}
	}
}

// ended runs ended callback on event goroutine.
func (c *Context) ended(fn func()) {
	c.dispatching.Store(true)
	defer c.dispatching.Store(false)
	c.call("ended", fn)
}

// call runs a callback and logs its panic.
func (c *Context) call(name string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			c.logger.WithFields(logrus.Fields{
				"callback": name,
				"panic":    v,
			}).Error("callback failed")
		}
	}()
	fn()
}

// Close stops offline rendering and event goroutine. Pending ended
// callbacks are invoked before Close returns, unless Close is called
// while an ended callback runs: then it returns without waiting and the
// event goroutine exits after the callbacks. Done reports when it did.
// Close can be called from ended and offline complete callbacks.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.offline != nil {
		c.offline.stop()
	}
	c.wg.Wait()
	close(c.done)
	if !c.dispatching.Load() {
		<-c.stopped
	}
	if n := c.dropped.Load(); n > 0 {
		c.logger.WithField("dropped", n).Warn("ended events were dropped")
	}
	c.logger.WithFields(logrus.Fields{
		"frames":       c.frame.Load(),
		"silentQuanta": c.silent.Load(),
	}).Debug("context closed")
	return nil
}

// Done returns a channel which is closed when context is closed and its
// event goroutine has exited.
func (c *Context) Done() <-chan struct{} {
	return c.stopped
}

// base validates node and returns its base.
func (c *Context) base(n Node) (*BaseNode, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	b := n.Base()
	if b == nil {
		return nil, ErrNilNode
	}
	if b.ctx != c {
		return nil, fmt.Errorf("%s: %w", b.name, ErrForeignNode)
	}
	return b, nil
}

// Connect connects output srcOutput of src to input dstInput of dst.
func (c *Context) Connect(dst, src Node, dstInput, srcOutput int) error {
	d, err := c.base(dst)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s, err := c.base(src)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	in := d.Input(dstInput)
	if in == nil {
		return fmt.Errorf("connect %s input %d: %w", d.name, dstInput, ErrInvalidIndex)
	}
	out := s.Output(srcOutput)
	if out == nil {
		return fmt.Errorf("connect %s output %d: %w", s.name, srcOutput, ErrInvalidIndex)
	}
	if n := out.NumberOfChannels(); n > in.ChannelLimit() {
		return fmt.Errorf("connect %s to %s: %d channels exceed %d: %w", s.name, d.name, n, in.ChannelLimit(), ErrChannelMismatch)
	}
	return c.enqueue(change{kind: connectChange, dst: d, src: s, dstIndex: dstInput, srcIndex: srcOutput})
}

// Disconnect removes connections from src to dst. Nil dst matches every
// destination of src, including params it drives. AnyPort matches every
// port index.
func (c *Context) Disconnect(dst, src Node, dstInput, srcOutput int) error {
	s, err := c.base(src)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	var d *BaseNode
	if dst != nil {
		if d, err = c.base(dst); err != nil {
			return fmt.Errorf("disconnect: %w", err)
		}
		if dstInput != AnyPort && d.Input(dstInput) == nil {
			return fmt.Errorf("disconnect %s input %d: %w", d.name, dstInput, ErrInvalidIndex)
		}
	}
	if srcOutput != AnyPort && s.Output(srcOutput) == nil {
		return fmt.Errorf("disconnect %s output %d: %w", s.name, srcOutput, ErrInvalidIndex)
	}
	return c.enqueue(change{kind: disconnectChange, dst: d, src: s, dstIndex: dstInput, srcIndex: srcOutput})
}

// DisconnectInput removes every connection into input of dst.
func (c *Context) DisconnectInput(dst Node, dstInput int) error {
	d, err := c.base(dst)
	if err != nil {
		return fmt.Errorf("disconnect input: %w", err)
	}
	if d.Input(dstInput) == nil {
		return fmt.Errorf("disconnect %s input %d: %w", d.name, dstInput, ErrInvalidIndex)
	}
	return c.enqueue(change{kind: disconnectInputChange, dst: d, dstIndex: dstInput})
}

// ConnectParam drives param with output srcOutput of src.
func (c *Context) ConnectParam(p *Param, src Node, srcOutput int) error {
	if p == nil {
		return fmt.Errorf("connect param: %w", ErrNilParam)
	}
	if p.owner.ctx != c {
		return fmt.Errorf("connect param %s: %w", p.name, ErrForeignNode)
	}
	s, err := c.base(src)
	if err != nil {
		return fmt.Errorf("connect param %s: %w", p.name, err)
	}
	if s.Output(srcOutput) == nil {
		return fmt.Errorf("connect param %s output %d: %w", p.name, srcOutput, ErrInvalidIndex)
	}
	return c.enqueue(change{kind: connectParamChange, param: p, src: s, srcIndex: srcOutput})
}

// DisconnectParam removes connection from output srcOutput of src to
// param. AnyPort matches every output.
func (c *Context) DisconnectParam(p *Param, src Node, srcOutput int) error {
	if p == nil {
		return fmt.Errorf("disconnect param: %w", ErrNilParam)
	}
	s, err := c.base(src)
	if err != nil {
		return fmt.Errorf("disconnect param %s: %w", p.name, err)
	}
	if srcOutput != AnyPort && s.Output(srcOutput) == nil {
		return fmt.Errorf("disconnect param %s output %d: %w", p.name, srcOutput, ErrInvalidIndex)
	}
	return c.enqueue(change{kind: disconnectParamChange, param: p, src: s, srcIndex: srcOutput})
}

// Remove tears down every connection of the node.
func (c *Context) Remove(n Node) error {
	b, err := c.base(n)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return c.enqueue(change{kind: removeChange, dst: b})
}

// AddAutomaticPull makes node render every quantum, even when it has no
// path to destination.
func (c *Context) AddAutomaticPull(n Node) error {
	b, err := c.base(n)
	if err != nil {
		return fmt.Errorf("automatic pull: %w", err)
	}
	return c.enqueue(change{kind: addPullChange, dst: b})
}

// RemoveAutomaticPull stops automatic rendering of the node.
func (c *Context) RemoveAutomaticPull(n Node) error {
	b, err := c.base(n)
	if err != nil {
		return fmt.Errorf("automatic pull: %w", err)
	}
	return c.enqueue(change{kind: removePullChange, dst: b})
}

// View runs fn under shared graph lock. Rendering doesn't happen while fn
// executes, so it can read render state of nodes. View isn't reentrant:
// fn must not call View, Traverse or IsConnected, because a commit
// waiting for the lock blocks new readers until fn returns.
func (c *Context) View(fn func()) error {
	if err := c.lock.rlock(context.Background()); err != nil {
		return err
	}
	defer c.lock.runlock()
	fn()
	return nil
}

// IsConnected reports if any output of src is connected to an input or
// param of dst. Only committed changes are visible. It must not be
// called from View.
func (c *Context) IsConnected(dst, src Node) bool {
	d, err := c.base(dst)
	if err != nil {
		return false
	}
	s, err := c.base(src)
	if err != nil {
		return false
	}
	if err := c.lock.rlock(context.Background()); err != nil {
		return false
	}
	defer c.lock.runlock()
	for _, out := range s.outputs {
		for _, in := range out.inputs {
			if in.node == d {
				return true
			}
		}
		for _, p := range out.params {
			if p.owner == d {
				return true
			}
		}
	}
	return false
}
