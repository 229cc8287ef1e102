package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"

	"github.com/dudk/phonograph"
)

// DynamicsCompressor lowers the volume of loud parts of signal. Params
// are applied once per quantum, attack and release are in seconds.
type DynamicsCompressor struct {
	*phonograph.BaseNode
	Threshold *phonograph.Param
	Knee      *phonograph.Param
	Ratio     *phonograph.Param
	Attack    *phonograph.Param
	Release   *phonograph.Param

	reduction atomic.Uint64

	compressors [phonograph.MaxChannels]*dynamics.Compressor
	applied     [5]float64
}

// NewDynamicsCompressor creates compressor with -24dB threshold and 12:1
// ratio. Makeup gain isn't applied.
func NewDynamicsCompressor(ctx *phonograph.Context) (*DynamicsCompressor, error) {
	d := &DynamicsCompressor{}
	for i := range d.compressors {
		c, err := dynamics.NewCompressor(float64(ctx.SampleRate()))
		if err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		if err := c.SetMakeupGain(0); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		c.ResetMetrics()
		d.compressors[i] = c
	}
	d.BaseNode = phonograph.NewBaseNode(ctx, d, "compressor")
	d.Threshold = d.AddParam("threshold", -24, -100, 0)
	d.Knee = d.AddParam("knee", 6, 0, 24)
	d.Ratio = d.AddParam("ratio", 12, 1, 20)
	d.Attack = d.AddParam("attack", 0.003, 0.0002, 1)
	d.Release = d.AddParam("release", 0.25, 0.002, 4)
	d.AddInput()
	d.AddOutput(1)
	return d, nil
}

// Process implements phonograph.Node.
func (d *DynamicsCompressor) Process(r *phonograph.RenderLock, frames int) {
	if err := d.configure(r); err != nil {
		d.Fail(err)
		return
	}
	in := d.Input(0).Bus(r)
	out := d.Output(0)
	out.SetNumberOfChannels(in.NumChannels())
	b := out.Bus(r)
	for c := range b {
		comp := d.compressors[c]
		for i := range b[c] {
			b[c][i] = comp.ProcessSample(in[c][i])
		}
	}
	// reduction is metered on the first channel.
	comp := d.compressors[0]
	d.reduction.Store(math.Float64bits(20 * math.Log10(comp.GetMetrics().GainReduction)))
	comp.ResetMetrics()
}

// Reduction returns gain reduction of the last rendered quantum in dB.
// It's zero or negative.
func (d *DynamicsCompressor) Reduction() float64 {
	return math.Float64frombits(d.reduction.Load())
}

// configure pushes changed params into compressors.
func (d *DynamicsCompressor) configure(r *phonograph.RenderLock) error {
	values := [5]float64{
		d.Threshold.FinalValue(r),
		d.Knee.FinalValue(r),
		d.Ratio.FinalValue(r),
		d.Attack.FinalValue(r) * 1000,
		d.Release.FinalValue(r) * 1000,
	}
	if values == d.applied {
		return nil
	}
	for _, c := range d.compressors {
		if err := c.SetThreshold(values[0]); err != nil {
			return err
		}
		if err := c.SetKnee(values[1]); err != nil {
			return err
		}
		if err := c.SetRatio(values[2]); err != nil {
			return err
		}
		if err := c.SetAttack(values[3]); err != nil {
			return err
		}
		if err := c.SetRelease(values[4]); err != nil {
			return err
		}
	}
	d.applied = values
	return nil
}
