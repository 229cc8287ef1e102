// Package mp3 loads and writes mp3 files.
package mp3

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/viert/lame"

	"github.com/dudk/phonograph"
)

// Decoder always provides stereo 16 bits signal.
const (
	numChannels = 2
	bitDepth    = 16
)

const (
	// DefaultBitRate is used to write files when bit rate isn't set.
	DefaultBitRate = 192
	// DefaultQuality is used to write files when quality isn't set.
	DefaultQuality = 2
)

// Load decodes whole mp3 into stereo bus. It returns signal and its
// sample rate.
func Load(r io.Reader) (phonograph.Bus, int, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	var frames int
	if l := d.Length(); l > 0 {
		frames = int(l / (numChannels * bitDepth / 8))
	}
	bus := make(phonograph.Bus, numChannels)
	for c := range bus {
		bus[c] = make([]float64, 0, frames)
	}
	br := bufio.NewReader(d)
	var frame [numChannels]int16
	for {
		if err := binary.Read(br, binary.LittleEndian, &frame); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, 0, fmt.Errorf("decode mp3: %w", err)
		}
		for c := range bus {
			bus[c] = append(bus[c], float64(frame[c])/(1<<(bitDepth-1)))
		}
	}
	return bus, d.SampleRate(), nil
}

// Options of mp3 encoder.
type Options struct {
	BitRate int
	Quality int
}

// Write encodes bus into joint stereo mp3. Mono signal is copied into
// both channels, channels above two are dropped.
func Write(w io.Writer, bus phonograph.Bus, sampleRate int, opts Options) error {
	if bus.NumChannels() == 0 {
		return fmt.Errorf("write mp3: empty bus")
	}
	if opts.BitRate == 0 {
		opts.BitRate = DefaultBitRate
	}
	if opts.Quality == 0 {
		opts.Quality = DefaultQuality
	}
	stereo := phonograph.NewBus(numChannels, bus.Size())
	stereo.SumFrom(bus)

	wr := lame.NewWriter(w)
	wr.Encoder.SetBitrate(opts.BitRate)
	wr.Encoder.SetQuality(opts.Quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(sampleRate)
	wr.Encoder.SetMode(lame.JOINT_STEREO)
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()

	ints := stereo.AsIntBuffer(sampleRate, bitDepth).Data
	data := make([]byte, 0, len(ints)*2)
	for _, v := range ints {
		data = binary.LittleEndian.AppendUint16(data, uint16(int16(v)))
	}
	if _, err := wr.Write(data); err != nil {
		return fmt.Errorf("encode mp3: %w", err)
	}
	return wr.Close()
}
