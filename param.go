package phonograph

import (
	"math"
	"sync/atomic"
)

// Param is a per-node scalar control. Its value can be set immediately,
// automated over time, or driven at audio rate by other nodes' outputs.
//
// Setters are safe to call from any goroutine and never block the render
// goroutine. Automation events are applied with the next commit.
type Param struct {
	name         string
	owner        *BaseNode
	defaultValue float64
	minValue     float64
	maxValue     float64

	intrinsic atomic.Uint64
	last      atomic.Uint64

	// render goroutine state.
	timeline timeline
	sources  []*Output
	values   []float64
	quantum  uint64
	driven   bool
}

func newParam(owner *BaseNode, name string, defaultValue, minValue, maxValue float64, size int) *Param {
	p := &Param{
		name:         name,
		owner:        owner,
		defaultValue: defaultValue,
		minValue:     minValue,
		maxValue:     maxValue,
		values:       make([]float64, size),
		sources:      make([]*Output, 0, 2),
	}
	p.intrinsic.Store(math.Float64bits(defaultValue))
	p.last.Store(math.Float64bits(defaultValue))
	return p
}

// Name of the param.
func (p *Param) Name() string {
	return p.name
}

// Node returns the node which owns the param.
func (p *Param) Node() *BaseNode {
	return p.owner
}

// DefaultValue returns the value param is created with.
func (p *Param) DefaultValue() float64 {
	return p.defaultValue
}

// Range returns min and max param values.
func (p *Param) Range() (float64, float64) {
	return p.minValue, p.maxValue
}

// SetValue sets the intrinsic value. It's used whenever the timeline
// has no events.
func (p *Param) SetValue(v float64) {
	v = p.clamp(v)
	p.intrinsic.Store(math.Float64bits(v))
	p.last.Store(math.Float64bits(v))
}

// Value returns the latest rendered value. Before the first render it
// returns the intrinsic value.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.last.Load())
}

// SetValueAtTime schedules a step to v at time t.
func (p *Param) SetValueAtTime(v, t float64) error {
	return p.schedule(automationEvent{kind: setValueEvent, value: v, time: t})
}

// LinearRampToValueAtTime schedules linear ramp from previous event
// that reaches v at time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) error {
	return p.schedule(automationEvent{kind: linearRampEvent, value: v, time: t})
}

// ExponentialRampToValueAtTime schedules exponential ramp from previous
// event that reaches v at time t. Ramps between values of different sign
// or touching zero hold the previous value.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) error {
	return p.schedule(automationEvent{kind: exponentialRampEvent, value: v, time: t})
}

// SetTargetAtTime schedules exponential approach to target starting at
// time t with provided time constant in seconds.
func (p *Param) SetTargetAtTime(target, t, timeConstant float64) error {
	return p.schedule(automationEvent{kind: setTargetEvent, value: target, time: t, timeConstant: timeConstant})
}

// CancelScheduledValues removes all events scheduled at or after t.
func (p *Param) CancelScheduledValues(t float64) error {
	return p.owner.ctx.enqueue(change{kind: cancelParamEvents, param: p, time: t})
}

func (p *Param) schedule(e automationEvent) error {
	if e.time < 0 || math.IsNaN(e.time) {
		return ErrInvalidState
	}
	e.value = p.clamp(e.value)
	return p.owner.ctx.enqueue(change{kind: addParamEvent, param: p, event: e})
}

// Values returns per-frame values of the current quantum. Must be called
// from Process only.
func (p *Param) Values(r *RenderLock) []float64 {
	p.render(r)
	return p.values[:r.frames]
}

// FinalValue returns the value at the first frame of current quantum.
// Must be called from Process only.
func (p *Param) FinalValue(r *RenderLock) float64 {
	p.render(r)
	return p.values[0]
}

// IsConnected reports if param is driven by any committed connection.
func (p *Param) IsConnected(r *RenderLock) bool {
	return len(p.sources) > 0
}

// render resolves param values once per quantum.
func (p *Param) render(r *RenderLock) {
	if p.quantum == r.quantum {
		return
	}
	p.quantum = r.quantum
	values := p.values[:r.frames]
	intrinsic := math.Float64frombits(p.intrinsic.Load())
	if p.timeline.empty() {
		for i := range values {
			values[i] = intrinsic
		}
	} else {
		for i := range values {
			values[i] = p.timeline.valueAt(r.TimeAt(i), intrinsic)
		}
		if v, done := p.timeline.prune(r.TimeAt(r.frames)); done {
			p.intrinsic.Store(math.Float64bits(v))
		}
	}

	p.driven = false
	for _, out := range p.sources {
		bus := out.pull(r)
		if bus.IsSilent() {
			continue
		}
		p.driven = true
		scale := 1 / float64(bus.NumChannels())
		for c := range bus {
			for i, v := range bus[c][:r.frames] {
				values[i] += v * scale
			}
		}
	}
	for i, v := range values {
		values[i] = p.clamp(v)
	}
	p.last.Store(math.Float64bits(values[len(values)-1]))
}

// cancel drops events at or after t. Param holds its last rendered value
// if no events are left.
func (p *Param) cancel(t float64) {
	if p.timeline.empty() {
		return
	}
	p.timeline.cancel(t)
	if p.timeline.empty() {
		p.intrinsic.Store(p.last.Load())
	}
}

func (p *Param) clamp(v float64) float64 {
	if v < p.minValue {
		return p.minValue
	}
	if v > p.maxValue {
		return p.maxValue
	}
	return v
}

func (p *Param) connect(out *Output) {
	for _, o := range p.sources {
		if o == out {
			return
		}
	}
	p.sources = append(p.sources, out)
	out.params = append(out.params, p)
}

func (p *Param) disconnect(out *Output) {
	for i, o := range p.sources {
		if o == out {
			p.sources = append(p.sources[:i], p.sources[i+1:]...)
			out.removeParam(p)
			return
		}
	}
}
