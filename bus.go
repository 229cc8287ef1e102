package phonograph

import (
	"math"

	"github.com/go-audio/audio"
)

// MaxChannels is the highest channel count a port can carry. Port buses
// are preallocated with this capacity so channel count changes during
// render never allocate.
const MaxChannels = 8

// Bus is a block of samples in two-dimensional array where first
// dimension is for channels.
type Bus [][]float64

// NewBus allocates a zeroed bus.
func NewBus(numChannels, size int) Bus {
	b := make([][]float64, numChannels)
	for i := range b {
		b[i] = make([]float64, size)
	}
	return b
}

// NumChannels returns number of channels in the bus.
func (b Bus) NumChannels() int {
	return len(b)
}

// Size returns length of samples per channel.
func (b Bus) Size() int {
	if len(b) == 0 || b[0] == nil {
		return 0
	}
	return len(b[0])
}

// Zero fills the bus with silence.
func (b Bus) Zero() {
	for i := range b {
		clear(b[i])
	}
}

// ZeroRange silences frames [from, to) in every channel.
func (b Bus) ZeroRange(from, to int) {
	if from >= to {
		return
	}
	for i := range b {
		clear(b[i][from:to])
	}
}

// Scale multiplies every sample by g.
func (b Bus) Scale(g float64) {
	for i := range b {
		for j := range b[i] {
			b[i][j] *= g
		}
	}
}

// MaxAbs returns the peak absolute sample value.
func (b Bus) MaxAbs() float64 {
	var peak float64
	for i := range b {
		for _, v := range b[i] {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// IsSilent reports whether every sample is zero.
func (b Bus) IsSilent() bool {
	for i := range b {
		for _, v := range b[i] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// CopyFrom replaces bus content with src, mixed into bus channel layout.
func (b Bus) CopyFrom(src Bus) {
	b.Zero()
	b.SumFrom(src)
}

// SumFrom adds src into the bus. When channel counts differ the fixed
// speakers matrix is applied:
//
//	equal counts: channel i is added to channel i;
//	1 -> N:       mono is added to every channel;
//	N -> 1:       the average of all source channels is added;
//	M -> N:       discrete, channel i to channel i for i < min(M, N).
//
// Only the first min(b.Size(), src.Size()) frames are summed.
func (b Bus) SumFrom(src Bus) {
	dst, n := b.NumChannels(), src.NumChannels()
	if dst == 0 || n == 0 {
		return
	}
	frames := min(b.Size(), src.Size())
	switch {
	case n == 1 && dst > 1:
		in := src[0][:frames]
		for c := range b {
			out := b[c][:frames]
			for i, v := range in {
				out[i] += v
			}
		}
	case dst == 1 && n > 1:
		out := b[0][:frames]
		scale := 1 / float64(n)
		for c := range src {
			in := src[c][:frames]
			for i, v := range in {
				out[i] += v * scale
			}
		}
	default:
		for c := 0; c < min(dst, n); c++ {
			in, out := src[c][:frames], b[c][:frames]
			for i, v := range in {
				out[i] += v
			}
		}
	}
}

// Append returns a bus with src frames appended. Allocates, so it's only
// meant for control-side code.
func (b Bus) Append(src Bus) Bus {
	if b == nil {
		b = make([][]float64, src.NumChannels())
	}
	for i := range b {
		if i < len(src) {
			b[i] = append(b[i], src[i]...)
		} else {
			b[i] = append(b[i], make([]float64, src.Size())...)
		}
	}
	return b
}

// Slice returns frames [from, to) of every channel. Data is shared.
func (b Bus) Slice(from, to int) Bus {
	s := make([][]float64, len(b))
	for i := range b {
		s[i] = b[i][from:to]
	}
	return s
}

// Clone returns a deep copy of the bus.
func (b Bus) Clone() Bus {
	c := make([][]float64, len(b))
	for i := range b {
		c[i] = append([]float64(nil), b[i]...)
	}
	return c
}

// AsIntBuffer returns interleaved PCM buffer of the bus with provided
// bit depth. Samples are clipped to [-1, 1].
func (b Bus) AsIntBuffer(sampleRate, bitDepth int) *audio.IntBuffer {
	numChannels := b.NumChannels()
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, numChannels*b.Size()),
		SourceBitDepth: bitDepth,
	}
	scale := float64(int64(1)<<(bitDepth-1) - 1)
	for i := 0; i < b.Size(); i++ {
		for j := range b {
			v := max(-1, min(1, b[j][i]))
			buf.Data[i*numChannels+j] = int(math.Round(v * scale))
		}
	}
	return buf
}

// BusFromIntBuffer deinterleaves PCM buffer into a new bus. Samples are
// normalized by the source bit depth, 16 bits are assumed if it's unset.
func BusFromIntBuffer(buf *audio.IntBuffer) Bus {
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := 1 / float64(int64(1)<<(bitDepth-1))
	numChannels := buf.Format.NumChannels
	frames := len(buf.Data) / numChannels
	b := NewBus(numChannels, frames)
	for i := 0; i < frames; i++ {
		for j := range b {
			b[j][i] = float64(buf.Data[i*numChannels+j]) * scale
		}
	}
	return b
}

// storage is a preallocated backing for port buses.
type storage struct {
	channels [MaxChannels][]float64
	bus      Bus
}

func newStorage(numChannels, size int) *storage {
	s := &storage{}
	for i := range s.channels {
		s.channels[i] = make([]float64, size)
	}
	s.bus = make(Bus, 0, MaxChannels)
	s.resize(numChannels)
	return s
}

// resize changes number of visible channels without allocation.
func (s *storage) resize(numChannels int) {
	numChannels = max(1, min(numChannels, MaxChannels))
	if len(s.bus) == numChannels {
		return
	}
	s.bus = s.bus[:numChannels]
	for i := range s.bus {
		s.bus[i] = s.channels[i]
	}
}
