package node

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/dudk/phonograph"
)

// convolverChannels is the highest channel count convolver accepts.
const convolverChannels = 2

// Convolver applies impulse response to its input, e.g. to simulate
// room reverberation. Input channel c is convolved with impulse channel
// c, mono impulse is used for every channel.
type Convolver struct {
	*phonograph.BaseNode

	convolvers [convolverChannels]*conv.StreamingOverlapAdd
}

// NewConvolver creates convolver with provided impulse response. Impulse
// must have one or two channels.
func NewConvolver(ctx *phonograph.Context, impulse phonograph.Bus) (*Convolver, error) {
	if n := impulse.NumChannels(); n == 0 || n > convolverChannels || impulse.Size() == 0 {
		return nil, fmt.Errorf("convolver: impulse with %d channels of %d frames: %w", n, impulse.Size(), phonograph.ErrChannelMismatch)
	}
	c := &Convolver{}
	for i := range c.convolvers {
		kernel := impulse[i%impulse.NumChannels()]
		soa, err := conv.NewStreamingOverlapAdd(kernel, ctx.QuantumSize())
		if err != nil {
			return nil, fmt.Errorf("convolver: %w", err)
		}
		c.convolvers[i] = soa
	}
	c.BaseNode = phonograph.NewBaseNode(ctx, c, "convolver")
	c.AddInput(phonograph.WithChannelLimit(convolverChannels))
	c.AddOutput(1)
	return c, nil
}

// Process implements phonograph.Node.
func (c *Convolver) Process(r *phonograph.RenderLock, frames int) {
	in := c.Input(0).Bus(r)
	out := c.Output(0)
	out.SetNumberOfChannels(min(in.NumChannels(), convolverChannels))
	b := out.Bus(r)
	for ch := range b {
		if err := c.convolvers[ch].ProcessBlockTo(b[ch], in[ch]); err != nil {
			c.Fail(err)
			return
		}
	}
}
