package node

import (
	"github.com/dudk/phonograph"
)

type stage int

const (
	idle stage = iota
	attack
	decay
	sustain
	release
)

// ADSR shapes its input with attack, decay, sustain and release
// envelope. Envelope is triggered when gate param rises above zero and
// released when it falls back. Without connected input the envelope
// itself is the output.
type ADSR struct {
	*phonograph.BaseNode
	Gate *phonograph.Param
	// Attack, Decay and Release are durations in seconds.
	Attack  *phonograph.Param
	Decay   *phonograph.Param
	Sustain *phonograph.Param
	Release *phonograph.Param

	stage stage
	level float64
	// level release started from.
	released float64
	elapsed  float64
	envelope []float64
}

// NewADSR creates envelope node.
func NewADSR(ctx *phonograph.Context) *ADSR {
	a := &ADSR{
		envelope: make([]float64, ctx.QuantumSize()),
	}
	a.BaseNode = phonograph.NewBaseNode(ctx, a, "adsr")
	a.Gate = a.AddParam("gate", 0, 0, 1)
	a.Attack = a.AddParam("attack", 0.05, 0, 60)
	a.Decay = a.AddParam("decay", 0.1, 0, 60)
	a.Sustain = a.AddParam("sustain", 0.5, 0, 1)
	a.Release = a.AddParam("release", 0.2, 0, 60)
	a.AddInput()
	a.AddOutput(1)
	return a
}

// Process implements phonograph.Node.
func (a *ADSR) Process(r *phonograph.RenderLock, frames int) {
	var (
		gate    = a.Gate.Values(r)
		atk     = a.Attack.FinalValue(r)
		dec     = a.Decay.FinalValue(r)
		sus     = a.Sustain.FinalValue(r)
		rel     = a.Release.FinalValue(r)
		step    = 1 / float64(r.SampleRate())
		env     = a.envelope[:frames]
		playing = a.stage != idle && a.stage != release
	)
	for i := range env {
		open := gate[i] > 0
		switch {
		case open && !playing:
			a.stage, a.elapsed, playing = attack, 0, true
		case !open && playing:
			a.stage, a.elapsed, a.released, playing = release, 0, a.level, false
		}
		a.advance(atk, dec, sus, rel)
		a.elapsed += step
		env[i] = a.level
	}

	in := a.Input(0)
	out := a.Output(0)
	if !in.IsConnected(r) {
		out.SetNumberOfChannels(1)
		copy(out.Bus(r)[0], env)
		return
	}
	src := in.Bus(r)
	out.SetNumberOfChannels(src.NumChannels())
	b := out.Bus(r)
	for c := range b {
		for i, g := range env {
			b[c][i] = src[c][i] * g
		}
	}
}

// advance computes envelope level at elapsed time of current stage.
func (a *ADSR) advance(atk, dec, sus, rel float64) {
	switch a.stage {
	case attack:
		if a.elapsed >= atk {
			a.stage, a.elapsed, a.level = decay, a.elapsed-atk, 1
			a.advance(atk, dec, sus, rel)
			return
		}
		a.level = a.elapsed / atk
	case decay:
		if a.elapsed >= dec {
			a.stage, a.level = sustain, sus
			return
		}
		a.level = 1 - (1-sus)*a.elapsed/dec
	case sustain:
		a.level = sus
	case release:
		if a.elapsed >= rel {
			a.stage, a.level = idle, 0
			return
		}
		a.level = a.released * (1 - a.elapsed/rel)
	}
}
