package phonograph

import "sync/atomic"

// ChannelCountMode defines how input computes its channel count.
type ChannelCountMode int

const (
	// ChannelCountMax takes the largest channel count of connected sources.
	ChannelCountMax ChannelCountMode = iota
	// ChannelCountExplicit uses fixed channel count, sources are mixed into it.
	ChannelCountExplicit
)

// AnyPort matches any port index in disconnect calls.
const AnyPort = -1

// Input sums every connected output into one bus.
type Input struct {
	node  *BaseNode
	index int
	mode  ChannelCountMode
	count int
	limit int

	// render goroutine state.
	sources []*Output
	store   *storage
	silent  bool
}

// InputOption configures an input.
type InputOption func(*Input)

// WithExplicitChannels fixes input channel count.
func WithExplicitChannels(n int) InputOption {
	return func(in *Input) {
		in.mode = ChannelCountExplicit
		in.count = max(1, min(n, MaxChannels))
	}
}

// WithChannelLimit restricts the channel count of sources that can be
// connected to the input.
func WithChannelLimit(n int) InputOption {
	return func(in *Input) {
		in.limit = max(1, min(n, MaxChannels))
	}
}

// Node returns input owner.
func (in *Input) Node() *BaseNode {
	return in.node
}

// Index of input within its node.
func (in *Input) Index() int {
	return in.index
}

// ChannelLimit returns the highest source channel count input accepts.
func (in *Input) ChannelLimit() int {
	return in.limit
}

// Bus returns the summed signal of the current quantum. Must be called
// from Process only.
func (in *Input) Bus(r *RenderLock) Bus {
	return in.store.bus
}

// NumberOfChannels returns channel count of the rendered bus.
func (in *Input) NumberOfChannels(r *RenderLock) int {
	return len(in.store.bus)
}

// IsConnected reports if input has any committed source.
func (in *Input) IsConnected(r *RenderLock) bool {
	return len(in.sources) > 0
}

// IsSilent reports if the last rendered quantum was silent.
func (in *Input) IsSilent(r *RenderLock) bool {
	return in.silent
}

// pull renders every source and mixes them into input bus.
func (in *Input) pull(r *RenderLock) {
	channels := in.count
	if in.mode == ChannelCountMax {
		channels = 1
		for _, out := range in.sources {
			channels = max(channels, len(out.pull(r)))
		}
	} else {
		for _, out := range in.sources {
			out.pull(r)
		}
	}
	in.store.resize(channels)
	bus := in.store.bus
	bus.Zero()
	for _, out := range in.sources {
		bus.SumFrom(out.store.bus)
	}
	in.silent = bus.IsSilent()
}

func (in *Input) connect(out *Output) {
	for _, o := range in.sources {
		if o == out {
			return
		}
	}
	in.sources = append(in.sources, out)
	out.inputs = append(out.inputs, in)
}

func (in *Input) disconnect(out *Output) bool {
	for i, o := range in.sources {
		if o == out {
			in.sources = append(in.sources[:i], in.sources[i+1:]...)
			out.removeInput(in)
			return true
		}
	}
	return false
}

// Output holds the rendered signal of a node.
type Output struct {
	node     *BaseNode
	index    int
	channels atomic.Int32

	// render goroutine state.
	store  *storage
	inputs []*Input
	params []*Param
}

// Node returns output owner.
func (o *Output) Node() *BaseNode {
	return o.node
}

// Index of output within its node.
func (o *Output) Index() int {
	return o.index
}

// NumberOfChannels returns current channel count of the output.
func (o *Output) NumberOfChannels() int {
	return int(o.channels.Load())
}

// SetNumberOfChannels changes output channel count. It doesn't allocate
// and it's safe to call from Process.
func (o *Output) SetNumberOfChannels(n int) {
	o.store.resize(n)
	o.channels.Store(int32(len(o.store.bus)))
}

// Bus returns output bus for the current quantum. Process writes
// rendered signal into it.
func (o *Output) Bus(r *RenderLock) Bus {
	return o.store.bus
}

// IsConnected reports if any input or param consumes the output.
func (o *Output) IsConnected(r *RenderLock) bool {
	return len(o.inputs) > 0 || len(o.params) > 0
}

// pull renders output node once per quantum and returns its bus.
func (o *Output) pull(r *RenderLock) Bus {
	o.node.render(r)
	return o.store.bus
}

func (o *Output) removeInput(in *Input) {
	for i, v := range o.inputs {
		if v == in {
			o.inputs = append(o.inputs[:i], o.inputs[i+1:]...)
			return
		}
	}
}

func (o *Output) removeParam(p *Param) {
	for i, v := range o.params {
		if v == p {
			o.params = append(o.params[:i], o.params[i+1:]...)
			return
		}
	}
}
