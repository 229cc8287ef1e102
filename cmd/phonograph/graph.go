package main

import (
	"flag"
	"fmt"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/asset"
	"github.com/dudk/phonograph/node"
)

// graphFlags describes the graph shared by all commands: sources are
// mixed into a gain and passed through optional effects into a panner.
type graphFlags struct {
	waveform  string
	frequency float64
	amplitude float64
	samples   stringList
	loop      bool
	gain      float64
	tremolo   float64
	cutoff    float64
	delay     float64
	compress  bool
	pan       float64
	channels  int
	rate      int
}

func (g *graphFlags) register(fs *flag.FlagSet) {
	g.samples = nil
	fs.StringVar(&g.waveform, "waveform", "sine", "oscillator waveform: sine, square, sawtooth or triangle")
	fs.Float64Var(&g.frequency, "frequency", 440, "oscillator frequency in Hz, 0 disables oscillator")
	fs.Float64Var(&g.amplitude, "amplitude", 0.5, "oscillator amplitude")
	fs.Var(&g.samples, "sample", "wav or mp3 file to play, can be repeated")
	fs.BoolVar(&g.loop, "loop", false, "loop samples")
	fs.Float64Var(&g.gain, "gain", 1, "master gain")
	fs.Float64Var(&g.tremolo, "tremolo", 0, "tremolo frequency in Hz")
	fs.Float64Var(&g.cutoff, "cutoff", 0, "lowpass cutoff frequency in Hz")
	fs.Float64Var(&g.delay, "delay", 0, "delay time in seconds")
	fs.BoolVar(&g.compress, "compress", false, "compress output")
	fs.Float64Var(&g.pan, "pan", 0, "stereo position in [-1, 1]")
	fs.IntVar(&g.channels, "channels", 2, "output channels")
	fs.IntVar(&g.rate, "rate", 44100, "output sample rate")
}

func (g *graphFlags) deviceConfig(deviceIndex int) phonograph.DeviceConfig {
	return phonograph.DeviceConfig{
		DeviceIndex: deviceIndex,
		SampleRate:  g.rate,
		Channels:    g.channels,
	}
}

// build connects the graph to context destination and starts its
// sources. It returns the node connected to destination.
func (g *graphFlags) build(ctx *phonograph.Context, cache *asset.Cache) (phonograph.Node, error) {
	chain := []phonograph.Node{}

	master := node.NewGain(ctx)
	master.Gain.SetValue(g.gain)
	chain = append(chain, master)

	if g.tremolo > 0 {
		// lfo swings gain between 0 and 2*gain around its value.
		lfo := node.NewOscillator(ctx, node.Sine)
		lfo.Frequency.SetValue(g.tremolo)
		lfo.Amplitude.SetValue(g.gain / 2)
		master.Gain.SetValue(g.gain / 2)
		if err := ctx.ConnectParam(master.Gain, lfo, 0); err != nil {
			return nil, err
		}
		if err := lfo.Start(0); err != nil {
			return nil, err
		}
	}
	if g.cutoff > 0 {
		filter := node.NewBiquadFilter(ctx, node.Lowpass)
		filter.Frequency.SetValue(g.cutoff)
		chain = append(chain, filter)
	}
	if g.delay > 0 {
		d, err := node.NewDelay(ctx, g.delay)
		if err != nil {
			return nil, err
		}
		d.DelayTime.SetValue(g.delay)
		chain = append(chain, d)
	}
	if g.compress {
		c, err := node.NewDynamicsCompressor(ctx)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
	}
	if g.pan != 0 {
		p := node.NewStereoPanner(ctx)
		p.Pan.SetValue(g.pan)
		chain = append(chain, p)
	}

	dst := phonograph.Node(ctx.Destination())
	for i := len(chain) - 1; i >= 0; i-- {
		if err := ctx.Connect(dst, chain[i], 0, 0); err != nil {
			return nil, err
		}
		dst = chain[i]
	}

	if g.frequency > 0 {
		w, err := node.ParseWaveform(g.waveform)
		if err != nil {
			return nil, err
		}
		osc := node.NewOscillator(ctx, w)
		osc.Frequency.SetValue(g.frequency)
		osc.Amplitude.SetValue(g.amplitude)
		if err := ctx.Connect(master, osc, 0, 0); err != nil {
			return nil, err
		}
		if err := osc.Start(0); err != nil {
			return nil, err
		}
	}
	for _, path := range g.samples {
		a, err := cache.Get(path)
		if err != nil {
			return nil, err
		}
		s, err := node.NewSampledAudio(ctx, a.Bus, a.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := ctx.Connect(master, s, 0, 0); err != nil {
			return nil, err
		}
		loops := 0
		if g.loop {
			loops = phonograph.InfiniteLoop
		}
		if err := s.Schedule(0, loops); err != nil {
			return nil, err
		}
	}
	return chain[len(chain)-1], nil
}
