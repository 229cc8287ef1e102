package node

import (
	"math"

	"github.com/dudk/phonograph"
)

// StereoPanner positions mono or stereo input in stereo field with
// equal power law. Pan is in [-1, 1], from left to right.
type StereoPanner struct {
	*phonograph.BaseNode
	Pan *phonograph.Param
}

// NewStereoPanner creates centered panner.
func NewStereoPanner(ctx *phonograph.Context) *StereoPanner {
	p := &StereoPanner{}
	p.BaseNode = phonograph.NewBaseNode(ctx, p, "stereo panner")
	p.Pan = p.AddParam("pan", 0, -1, 1)
	p.AddInput(phonograph.WithChannelLimit(2))
	p.AddOutput(2)
	return p
}

// Process implements phonograph.Node.
func (p *StereoPanner) Process(r *phonograph.RenderLock, frames int) {
	in := p.Input(0).Bus(r)
	out := p.Output(0).Bus(r)
	pan := p.Pan.Values(r)
	left, right := out[0], out[1]
	if in.NumChannels() == 1 {
		for i, v := range in[0] {
			x := (pan[i] + 1) / 2 * math.Pi / 2
			left[i] = v * math.Cos(x)
			right[i] = v * math.Sin(x)
		}
		return
	}
	inL, inR := in[0], in[1]
	for i := range left {
		if pan[i] <= 0 {
			x := (pan[i] + 1) * math.Pi / 2
			left[i] = inL[i] + inR[i]*math.Cos(x)
			right[i] = inR[i] * math.Sin(x)
		} else {
			x := pan[i] * math.Pi / 2
			left[i] = inL[i] * math.Cos(x)
			right[i] = inR[i] + inL[i]*math.Sin(x)
		}
	}
}
