package phonograph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constBus(numChannels, size int, values ...float64) Bus {
	b := NewBus(numChannels, size)
	for c := range b {
		for i := range b[c] {
			b[c][i] = values[c%len(values)]
		}
	}
	return b
}

func TestSumFrom(t *testing.T) {
	tests := []struct {
		name     string
		dst      Bus
		src      Bus
		expected []float64
	}{
		{
			name:     "equal",
			dst:      constBus(2, 4, 0.1),
			src:      constBus(2, 4, 0.2, 0.3),
			expected: []float64{0.3, 0.4},
		},
		{
			name:     "mono to stereo",
			dst:      NewBus(2, 4),
			src:      constBus(1, 4, 0.5),
			expected: []float64{0.5, 0.5},
		},
		{
			name:     "stereo to mono",
			dst:      NewBus(1, 4),
			src:      constBus(2, 4, 0.2, 0.4),
			expected: []float64{0.3},
		},
		{
			name:     "discrete up",
			dst:      NewBus(4, 4),
			src:      constBus(2, 4, 0.2, 0.4),
			expected: []float64{0.2, 0.4, 0, 0},
		},
		{
			name:     "discrete down",
			dst:      NewBus(2, 4),
			src:      constBus(6, 4, 0.1, 0.2, 0.3),
			expected: []float64{0.1, 0.2},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.dst.SumFrom(test.src)
			for c, v := range test.expected {
				for i := range test.dst[c] {
					assert.InDelta(t, v, test.dst[c][i], 1e-12)
				}
			}
		})
	}
}

func TestBusHelpers(t *testing.T) {
	b := constBus(2, 8, -0.75, 0.5)
	assert.Equal(t, 2, b.NumChannels())
	assert.Equal(t, 8, b.Size())
	assert.Equal(t, 0.75, b.MaxAbs())
	assert.False(t, b.IsSilent())

	b.ZeroRange(2, 6)
	assert.Equal(t, []float64{-0.75, -0.75, 0, 0, 0, 0, -0.75, -0.75}, b[0])

	c := b.Clone()
	c.Scale(2)
	assert.Equal(t, 1.0, c[1][0])
	assert.Equal(t, 0.5, b[1][0])

	s := b.Slice(1, 3)
	assert.Equal(t, 2, s.Size())
	assert.Equal(t, 0.0, s[0][1])

	a := Bus(nil).Append(b.Slice(0, 2)).Append(b.Slice(6, 8))
	assert.Equal(t, 4, a.Size())

	b.Zero()
	assert.True(t, b.IsSilent())
	assert.Equal(t, 0, Bus(nil).Size())
}

func TestIntBuffer(t *testing.T) {
	b := constBus(2, 3, 0.5, -2)
	buf := b.AsIntBuffer(44100, 16)
	assert.Equal(t, 6, len(buf.Data))
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 16384, buf.Data[0])
	assert.Equal(t, -32767, buf.Data[1])

	back := BusFromIntBuffer(buf)
	assert.Equal(t, 2, back.NumChannels())
	assert.Equal(t, 3, back.Size())
	assert.InDelta(t, 0.5, back[0][2], 1e-4)
	assert.InDelta(t, -1, back[1][2], 1e-4)
	assert.Nil(t, BusFromIntBuffer(nil))
}

func TestStorageResize(t *testing.T) {
	s := newStorage(2, 16)
	assert.Equal(t, 2, len(s.bus))
	s.bus[1][0] = 1
	s.resize(MaxChannels + 4)
	assert.Equal(t, MaxChannels, len(s.bus))
	assert.Equal(t, 1.0, s.bus[1][0])
	s.resize(0)
	assert.Equal(t, 1, len(s.bus))
	assert.Equal(t, MaxChannels, cap(s.bus))

	allocs := testing.AllocsPerRun(100, func() {
		s.resize(3)
		s.resize(1)
	})
	assert.Zero(t, allocs)
}
