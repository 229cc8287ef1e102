// Package mock provides mocks for graph nodes and allows to execute integration tests.
package mock

import (
	"math"
	"sync/atomic"

	"github.com/dudk/phonograph"
)

// Source mocks a source node. It outputs constant value.
type Source struct {
	*phonograph.BaseNode
	counter
	value atomic.Uint64
}

// NewSource creates constant source with provided channel count.
func NewSource(ctx *phonograph.Context, name string, numChannels int, value float64) *Source {
	s := &Source{}
	s.BaseNode = phonograph.NewBaseNode(ctx, s, name)
	s.AddOutput(numChannels)
	s.SetValue(value)
	return s
}

// SetValue changes the output value. Safe to call from any goroutine.
func (s *Source) SetValue(v float64) {
	s.value.Store(floatBits(v))
}

// Process implements phonograph.Node.
func (s *Source) Process(r *phonograph.RenderLock, frames int) {
	fill(s.Output(0).Bus(r), floatFrom(s.value.Load()))
	s.advance(frames)
}

// Scheduled mocks a scheduled source node. It outputs constant value
// while playing.
type Scheduled struct {
	*phonograph.BaseNode
	*phonograph.Scheduler
	counter
	Value float64
}

var _ phonograph.ScheduledNode = (*Scheduled)(nil)

// NewScheduled creates scheduled mono source.
func NewScheduled(ctx *phonograph.Context, name string, value float64) *Scheduled {
	s := &Scheduled{Value: value}
	s.BaseNode = phonograph.NewBaseNode(ctx, s, name)
	s.Scheduler = phonograph.NewScheduler(s.BaseNode)
	s.AddOutput(1)
	return s
}

// Process implements phonograph.Node.
func (s *Scheduled) Process(r *phonograph.RenderLock, frames int) {
	fill(s.Output(0).Bus(r), s.Value)
	s.advance(frames)
}

// Processor mocks a processor node. It passes input through and can be
// configured to fail.
type Processor struct {
	*phonograph.BaseNode
	counter
	ErrorOnCall error
	PanicOnCall bool
}

// NewProcessor creates pass-through processor with single input and
// output.
func NewProcessor(ctx *phonograph.Context, name string) *Processor {
	p := &Processor{}
	p.BaseNode = phonograph.NewBaseNode(ctx, p, name)
	p.AddInput()
	p.AddOutput(1)
	return p
}

// Process implements phonograph.Node.
func (p *Processor) Process(r *phonograph.RenderLock, frames int) {
	p.advance(frames)
	if p.ErrorOnCall != nil {
		p.Fail(p.ErrorOnCall)
		return
	}
	if p.PanicOnCall {
		panic("processor mock")
	}
	in := p.Input(0).Bus(r)
	out := p.Output(0)
	out.SetNumberOfChannels(in.NumChannels())
	out.Bus(r).CopyFrom(in)
}

func fill(b phonograph.Bus, v float64) {
	for c := range b {
		for i := range b[c] {
			b[c][i] = v
		}
	}
}

// counter counts process calls and frames.
type counter struct {
	calls  atomic.Int64
	frames atomic.Int64
}

func (c *counter) advance(frames int) {
	c.calls.Add(1)
	c.frames.Add(int64(frames))
}

// Count returns process calls and frames metrics.
func (c *counter) Count() (int, int) {
	return int(c.calls.Load()), int(c.frames.Load())
}

func floatBits(v float64) uint64 {
	return math.Float64bits(v)
}

func floatFrom(b uint64) float64 {
	return math.Float64frombits(b)
}
