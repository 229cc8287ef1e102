// Package wav loads and writes wav files.
package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/dudk/phonograph"
)

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when reader doesn't contain valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

// DefaultBitDepth is used to write files when bit depth isn't set.
const DefaultBitDepth = 16

// Load decodes whole wav into bus. It returns signal and its sample rate.
func Load(r io.ReadSeeker) (phonograph.Bus, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, ErrInvalidFile
	}
	if err := validate(int(decoder.BitDepth)); err != nil {
		return nil, 0, err
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(decoder.BitDepth)
	}
	bus := phonograph.BusFromIntBuffer(buf)
	if bus == nil {
		return nil, 0, ErrInvalidFile
	}
	return bus, int(decoder.SampleRate), nil
}

// Write encodes bus into PCM wav with provided bit depth.
func Write(w io.WriteSeeker, bus phonograph.Bus, sampleRate, bitDepth int) error {
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	if err := validate(bitDepth); err != nil {
		return err
	}
	if bus.NumChannels() == 0 {
		return fmt.Errorf("write wav: empty bus")
	}
	e := wav.NewEncoder(w, sampleRate, bitDepth, bus.NumChannels(), 1)
	if err := e.Write(bus.AsIntBuffer(sampleRate, bitDepth)); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return e.Close()
}

func validate(bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%d bits: %w", bitDepth, ErrUnsupportedBitDepth)
}
