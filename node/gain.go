package node

import (
	"math"

	"github.com/dudk/phonograph"
)

// Gain multiplies its input by gain param.
type Gain struct {
	*phonograph.BaseNode
	Gain *phonograph.Param
}

// NewGain creates gain node with unity gain.
func NewGain(ctx *phonograph.Context) *Gain {
	g := &Gain{}
	g.BaseNode = phonograph.NewBaseNode(ctx, g, "gain")
	g.Gain = g.AddParam("gain", 1, -math.MaxFloat32, math.MaxFloat32)
	g.AddInput()
	g.AddOutput(1)
	return g
}

// Process implements phonograph.Node.
func (g *Gain) Process(r *phonograph.RenderLock, frames int) {
	in := g.Input(0).Bus(r)
	out := g.Output(0)
	out.SetNumberOfChannels(in.NumChannels())
	b := out.Bus(r)
	if g.Input(0).IsSilent(r) {
		b.Zero()
		return
	}
	gain := g.Gain.Values(r)
	for c := range b {
		for i := range b[c] {
			b[c][i] = in[c][i] * gain[i]
		}
	}
}

// ConstantSource is a scheduled source of offset param value.
type ConstantSource struct {
	*phonograph.BaseNode
	*phonograph.Scheduler
	Offset *phonograph.Param
}

var _ phonograph.ScheduledNode = (*ConstantSource)(nil)

// NewConstantSource creates mono constant source.
func NewConstantSource(ctx *phonograph.Context, offset float64) *ConstantSource {
	s := &ConstantSource{}
	s.BaseNode = phonograph.NewBaseNode(ctx, s, "constant")
	s.Scheduler = phonograph.NewScheduler(s.BaseNode)
	s.Offset = s.AddParam("offset", offset, -math.MaxFloat32, math.MaxFloat32)
	s.AddOutput(1)
	return s
}

// Process implements phonograph.Node.
func (s *ConstantSource) Process(r *phonograph.RenderLock, frames int) {
	copy(s.Output(0).Bus(r)[0], s.Offset.Values(r))
}
