package node

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/dudk/phonograph"
)

// FilterType of biquad filter.
type FilterType int32

// Supported filter types.
const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Notch
	Allpass
	Peaking
	LowShelf
	HighShelf
)

var filterNames = [...]string{"lowpass", "highpass", "bandpass", "notch", "allpass", "peaking", "lowshelf", "highshelf"}

func (t FilterType) String() string {
	if t < 0 || int(t) >= len(filterNames) {
		return fmt.Sprintf("filter(%d)", int32(t))
	}
	return filterNames[t]
}

// BiquadFilter is a second order filter. Params are applied once per
// quantum.
type BiquadFilter struct {
	*phonograph.BaseNode
	Frequency *phonograph.Param
	Q         *phonograph.Param
	// Gain in dB, used by peaking and shelf filters.
	Gain *phonograph.Param

	filterType atomic.Int32
	sections   [phonograph.MaxChannels]*biquad.Section
	designed   struct {
		filterType           FilterType
		frequency, q, gainDB float64
		valid                bool
	}
}

// NewBiquadFilter creates filter of provided type with 350Hz frequency.
func NewBiquadFilter(ctx *phonograph.Context, t FilterType) *BiquadFilter {
	f := &BiquadFilter{}
	f.BaseNode = phonograph.NewBaseNode(ctx, f, "biquad")
	nyquist := float64(ctx.SampleRate()) / 2
	f.Frequency = f.AddParam("frequency", 350, 10, nyquist)
	f.Q = f.AddParam("Q", 1, 0.0001, 1000)
	f.Gain = f.AddParam("gain", 0, -40, 40)
	f.AddInput()
	f.AddOutput(1)
	for i := range f.sections {
		f.sections[i] = biquad.NewSection(biquad.Coefficients{B0: 1})
	}
	f.SetType(t)
	return f
}

// SetType changes filter type. Safe to call from any goroutine.
func (f *BiquadFilter) SetType(t FilterType) {
	f.filterType.Store(int32(t))
}

// Type returns filter type.
func (f *BiquadFilter) Type() FilterType {
	return FilterType(f.filterType.Load())
}

// Process implements phonograph.Node.
func (f *BiquadFilter) Process(r *phonograph.RenderLock, frames int) {
	f.design(r)
	in := f.Input(0).Bus(r)
	out := f.Output(0)
	out.SetNumberOfChannels(in.NumChannels())
	b := out.Bus(r)
	for c := range b {
		s := f.sections[c]
		for i := range b[c] {
			b[c][i] = s.ProcessSample(in[c][i])
		}
	}
}

// design updates coefficients when params or type have changed.
func (f *BiquadFilter) design(r *phonograph.RenderLock) {
	var (
		t    = f.Type()
		freq = f.Frequency.FinalValue(r)
		q    = f.Q.FinalValue(r)
		gain = f.Gain.FinalValue(r)
		d    = &f.designed
	)
	if d.valid && d.filterType == t && d.frequency == freq && d.q == q && d.gainDB == gain {
		return
	}
	d.filterType, d.frequency, d.q, d.gainDB, d.valid = t, freq, q, gain, true
	coeffs := Coefficients(t, freq, q, gain, float64(r.SampleRate()))
	for _, s := range f.sections {
		s.Coefficients = coeffs
	}
}

// Coefficients designs biquad of provided type.
func Coefficients(t FilterType, freq, q, gainDB, sampleRate float64) biquad.Coefficients {
	switch t {
	case Highpass:
		return design.Highpass(freq, q, sampleRate)
	case Bandpass:
		return design.Bandpass(freq, q, sampleRate)
	case Notch:
		return design.Notch(freq, q, sampleRate)
	case Allpass:
		return design.Allpass(freq, q, sampleRate)
	case Peaking:
		return design.Peak(freq, gainDB, q, sampleRate)
	case LowShelf:
		return design.LowShelf(freq, gainDB, q, sampleRate)
	case HighShelf:
		return design.HighShelf(freq, gainDB, q, sampleRate)
	}
	return design.Lowpass(freq, q, sampleRate)
}
