package node

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/dudk/phonograph"
)

// Waveform of the oscillator.
type Waveform int32

// Supported waveforms.
const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return fmt.Sprintf("waveform(%d)", int32(w))
	}
	return waveformNames[w]
}

// ParseWaveform returns waveform by its name.
func ParseWaveform(s string) (Waveform, error) {
	for i, name := range waveformNames {
		if name == s {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}

// Oscillator is a scheduled source of periodic signal.
type Oscillator struct {
	*phonograph.BaseNode
	*phonograph.Scheduler
	Frequency *phonograph.Param
	// Detune in cents.
	Detune    *phonograph.Param
	Amplitude *phonograph.Param

	waveform atomic.Int32
	phase    float64
}

var _ phonograph.ScheduledNode = (*Oscillator)(nil)

// NewOscillator creates mono oscillator with 440Hz frequency.
func NewOscillator(ctx *phonograph.Context, w Waveform) *Oscillator {
	o := &Oscillator{}
	o.BaseNode = phonograph.NewBaseNode(ctx, o, "oscillator")
	o.Scheduler = phonograph.NewScheduler(o.BaseNode)
	o.Frequency = o.AddParam("frequency", 440, 0, float64(ctx.SampleRate())/2)
	o.Detune = o.AddParam("detune", 0, -4800, 4800)
	o.Amplitude = o.AddParam("amplitude", 1, 0, 1)
	o.AddOutput(1)
	o.SetWaveform(w)
	return o
}

// SetWaveform changes waveform. Safe to call from any goroutine.
func (o *Oscillator) SetWaveform(w Waveform) {
	o.waveform.Store(int32(w))
}

// Waveform returns current waveform.
func (o *Oscillator) Waveform() Waveform {
	return Waveform(o.waveform.Load())
}

// Process implements phonograph.Node.
func (o *Oscillator) Process(r *phonograph.RenderLock, frames int) {
	if o.Starting() {
		o.phase = 0
	}
	var (
		freq   = o.Frequency.Values(r)
		detune = o.Detune.Values(r)
		amp    = o.Amplitude.Values(r)
		out    = o.Output(0).Bus(r)[0]
		w      = o.Waveform()
		sr     = float64(r.SampleRate())
	)
	offset, count := o.Span()
	for i := offset; i < offset+count; i++ {
		out[i] = amp[i] * wave(w, o.phase)
		f := freq[i]
		if detune[i] != 0 {
			f *= math.Exp2(detune[i] / 1200)
		}
		o.phase += f / sr
		o.phase -= math.Floor(o.phase)
	}
}

// wave returns waveform value at phase in [0, 1).
func wave(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		return 4*math.Abs(phase-0.5) - 1
	}
	return math.Sin(2 * math.Pi * phase)
}
