package node

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/delay"

	"github.com/dudk/phonograph"
)

// Delay delays its input by delay time param, in seconds.
type Delay struct {
	*phonograph.BaseNode
	DelayTime *phonograph.Param

	lines [phonograph.MaxChannels]*delay.Line
}

// NewDelay creates delay node which supports delays up to maxDelay
// seconds.
func NewDelay(ctx *phonograph.Context, maxDelay float64) (*Delay, error) {
	if maxDelay <= 0 || math.IsInf(maxDelay, 0) || math.IsNaN(maxDelay) {
		return nil, fmt.Errorf("delay: max delay %v: %w", maxDelay, phonograph.ErrInvalidConfig)
	}
	d := &Delay{}
	// fractional read needs three extra frames around the tap.
	size := int(math.Ceil(maxDelay*float64(ctx.SampleRate()))) + 4
	for i := range d.lines {
		line, err := delay.New(size)
		if err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}
		d.lines[i] = line
	}
	d.BaseNode = phonograph.NewBaseNode(ctx, d, "delay")
	d.DelayTime = d.AddParam("delayTime", 0, 0, maxDelay)
	d.AddInput()
	d.AddOutput(1)
	return d, nil
}

// Process implements phonograph.Node.
func (d *Delay) Process(r *phonograph.RenderLock, frames int) {
	in := d.Input(0).Bus(r)
	out := d.Output(0)
	out.SetNumberOfChannels(in.NumChannels())
	b := out.Bus(r)
	times := d.DelayTime.Values(r)
	sr := float64(r.SampleRate())
	for c := range b {
		line := d.lines[c]
		for i := range b[c] {
			line.Write(in[c][i])
			// tap 1 is the frame just written.
			b[c][i] = line.ReadFractional(times[i]*sr + 1)
		}
	}
}
