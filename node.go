package phonograph

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/xid"

	"github.com/dudk/phonograph/metric"
)

// Node is a graph vertex that renders signal. Implementations embed
// *BaseNode, which provides ports, params and rendering bookkeeping,
// and implement Process.
//
// Process is called at most once per quantum on the render goroutine,
// after all inputs and params of the node were rendered. It must fill
// output buses and must not allocate, lock, block or perform I/O.
type Node interface {
	Base() *BaseNode
	Process(r *RenderLock, frames int)
}

// BaseNode carries the state shared by all nodes.
type BaseNode struct {
	id        string
	name      string
	ctx       *Context
	self      Node
	inputs    []*Input
	outputs   []*Output
	params    []*Param
	scheduler *Scheduler
	err       atomic.Pointer[NodeError]
	meter     metric.MeasureFunc

	// render goroutine state.
	quantum uint64
	failed  bool
}

// NewBaseNode creates base for self node within provided context.
// Ports and params must be added before node is connected.
func NewBaseNode(ctx *Context, self Node, name string) *BaseNode {
	b := &BaseNode{
		id:   xid.New().String(),
		name: name,
		ctx:  ctx,
		self: self,
	}
	if ctx.metered {
		b.meter = metric.Meter(self, ctx.sampleRate)
	}
	return b
}

// Base returns itself, so embedding types satisfy Node interface.
func (b *BaseNode) Base() *BaseNode {
	return b
}

// ID returns unique node id.
func (b *BaseNode) ID() string {
	return b.id
}

// Name returns node name.
func (b *BaseNode) Name() string {
	return b.name
}

// Context returns the context node belongs to.
func (b *BaseNode) Context() *Context {
	return b.ctx
}

func (b *BaseNode) String() string {
	return fmt.Sprintf("%s %s", b.name, b.id)
}

// AddInput appends new input to the node.
func (b *BaseNode) AddInput(options ...InputOption) *Input {
	in := &Input{
		node:    b,
		index:   len(b.inputs),
		limit:   MaxChannels,
		count:   1,
		sources: make([]*Output, 0, 4),
	}
	for _, option := range options {
		option(in)
	}
	in.store = newStorage(in.count, b.ctx.quantumSize)
	b.inputs = append(b.inputs, in)
	return in
}

// AddOutput appends new output with provided channel count.
func (b *BaseNode) AddOutput(numChannels int) *Output {
	out := &Output{
		node:   b,
		index:  len(b.outputs),
		store:  newStorage(numChannels, b.ctx.quantumSize),
		inputs: make([]*Input, 0, 4),
	}
	out.channels.Store(int32(len(out.store.bus)))
	b.outputs = append(b.outputs, out)
	return out
}

// AddParam appends new param to the node.
func (b *BaseNode) AddParam(name string, defaultValue, minValue, maxValue float64) *Param {
	p := newParam(b, name, defaultValue, minValue, maxValue, b.ctx.quantumSize)
	b.params = append(b.params, p)
	return p
}

// NumberOfInputs returns number of node inputs.
func (b *BaseNode) NumberOfInputs() int {
	return len(b.inputs)
}

// NumberOfOutputs returns number of node outputs.
func (b *BaseNode) NumberOfOutputs() int {
	return len(b.outputs)
}

// Input returns input by index or nil if out of range.
func (b *BaseNode) Input(i int) *Input {
	if i < 0 || i >= len(b.inputs) {
		return nil
	}
	return b.inputs[i]
}

// Output returns output by index or nil if out of range.
func (b *BaseNode) Output(i int) *Output {
	if i < 0 || i >= len(b.outputs) {
		return nil
	}
	return b.outputs[i]
}

// Params returns node params.
func (b *BaseNode) Params() []*Param {
	return b.params
}

// Param returns param by name or nil.
func (b *BaseNode) Param(name string) *Param {
	for _, p := range b.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// IsScheduled reports if node has scheduling state.
func (b *BaseNode) IsScheduled() bool {
	return b.scheduler != nil
}

// Err returns the fault node reported during render, if any.
func (b *BaseNode) Err() error {
	if e := b.err.Load(); e != nil {
		return e
	}
	return nil
}

// Fail marks node as faulted. Node outputs silence from the current
// quantum on and scheduled nodes finish. Safe to call from Process.
func (b *BaseNode) Fail(err error) {
	b.err.CompareAndSwap(nil, &NodeError{Node: b.name, Err: err})
	b.failed = true
	if b.scheduler != nil {
		b.scheduler.finish()
	}
}

// Mutate enqueues fn to be executed on render goroutine during the next
// commit. Nodes use it to change state which Process reads.
func (b *BaseNode) Mutate(fn func()) error {
	return b.ctx.enqueue(change{kind: mutateNode, fn: fn})
}

// render executes node once per quantum. Nodes re-entered within the
// same quantum through a feedback cycle expose previous quantum output.
func (b *BaseNode) render(r *RenderLock) {
	if b.quantum == r.quantum {
		return
	}
	b.quantum = r.quantum
	for _, in := range b.inputs {
		in.pull(r)
	}
	for _, p := range b.params {
		p.render(r)
	}
	if b.failed {
		b.silence()
		return
	}

	offset, count := 0, r.frames
	if b.scheduler != nil {
		offset, count = b.scheduler.update(r)
		if count == 0 {
			b.silence()
			return
		}
	}

	var start time.Time
	if b.meter != nil {
		start = time.Now()
	}
	b.process(r)
	if b.meter != nil {
		b.meter(int64(r.frames), time.Since(start))
	}

	if b.failed {
		b.silence()
		return
	}
	if offset > 0 || offset+count < r.frames {
		for _, out := range b.outputs {
			out.store.bus.ZeroRange(0, offset)
			out.store.bus.ZeroRange(offset+count, r.frames)
		}
	}
}

// process calls node implementation. Panics are turned into node faults.
func (b *BaseNode) process(r *RenderLock) {
	defer func() {
		if v := recover(); v != nil {
			b.Fail(fmt.Errorf("panic: %v", v))
		}
	}()
	b.self.Process(r, r.frames)
}

func (b *BaseNode) silence() {
	for _, out := range b.outputs {
		out.store.bus.Zero()
	}
}
