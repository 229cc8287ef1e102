// Package device connects realtime contexts to audio outputs.
//
// Backends request frames in buffers which size is chosen by the audio
// API. Renderer renders context quantum by quantum and slices the
// quanta into those buffers.
package device

import (
	"encoding/binary"
	"math"

	"github.com/dudk/phonograph"
)

// Device is a started audio output.
type Device interface {
	Start() error
	Close() error
}

// Renderer pulls realtime context and converts rendered quanta into
// float32 samples. Its methods must be called from a single device
// goroutine.
type Renderer struct {
	ctx      *phonograph.Context
	quantum  phonograph.Bus
	channels int
	// next frame of quantum to read.
	pos int
}

// NewRenderer creates renderer of the context destination.
func NewRenderer(ctx *phonograph.Context) *Renderer {
	channels := ctx.Destination().NumberOfChannels()
	return &Renderer{
		ctx:      ctx,
		quantum:  phonograph.NewBus(channels, ctx.QuantumSize()),
		channels: channels,
		pos:      ctx.QuantumSize(),
	}
}

// NumChannels returns number of channels renderer produces.
func (r *Renderer) NumChannels() int {
	return r.channels
}

// next makes sure there are frames to read and returns how many.
func (r *Renderer) next(limit int) int {
	if r.pos == len(r.quantum[0]) {
		r.ctx.RenderQuantum(r.quantum)
		r.pos = 0
	}
	return min(limit, len(r.quantum[0])-r.pos)
}

// ReadInterleaved fills out with interleaved samples. Out length should
// be a multiple of channel count, trailing samples are zeroed.
func (r *Renderer) ReadInterleaved(out []float32) {
	frames := len(out) / r.channels
	for i := 0; i < frames; {
		n := r.next(frames - i)
		for j := 0; j < n; j++ {
			for c := range r.quantum {
				out[(i+j)*r.channels+c] = float32(r.quantum[c][r.pos+j])
			}
		}
		r.pos += n
		i += n
	}
	clear(out[frames*r.channels:])
}

// ReadNonInterleaved fills every channel of out. Missing channels are
// zeroed, extra context channels are dropped.
func (r *Renderer) ReadNonInterleaved(out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	for i := 0; i < frames; {
		n := r.next(frames - i)
		for c := range out {
			if c >= r.channels {
				clear(out[c][i : i+n])
				continue
			}
			src := r.quantum[c][r.pos : r.pos+n]
			for j, v := range src {
				out[c][i+j] = float32(v)
			}
		}
		r.pos += n
		i += n
	}
}

// Read implements io.Reader. It fills p with interleaved little endian
// float32 samples, rounded down to whole frames.
func (r *Renderer) Read(p []byte) (int, error) {
	frameSize := 4 * r.channels
	frames := len(p) / frameSize
	off := 0
	for i := 0; i < frames; {
		n := r.next(frames - i)
		for j := 0; j < n; j++ {
			for c := range r.quantum {
				binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(r.quantum[c][r.pos+j])))
				off += 4
			}
		}
		r.pos += n
		i += n
	}
	return off, nil
}
