package node

import (
	"fmt"
	"math"

	"github.com/dudk/phonograph"
)

// SampledAudio is a scheduled source which plays decoded signal. Loop
// count of the schedule sets how many times playback is repeated.
type SampledAudio struct {
	*phonograph.BaseNode
	*phonograph.Scheduler
	PlaybackRate *phonograph.Param

	// render goroutine state.
	bus        phonograph.Bus
	sampleRate int
	position   float64
	loops      int
}

var _ phonograph.ScheduledNode = (*SampledAudio)(nil)

// NewSampledAudio creates player of bus sampled at sampleRate. Bus is
// shared, it must not be modified after the node is created.
func NewSampledAudio(ctx *phonograph.Context, bus phonograph.Bus, sampleRate int) (*SampledAudio, error) {
	if err := validateSample(bus, sampleRate); err != nil {
		return nil, err
	}
	s := &SampledAudio{
		bus:        bus,
		sampleRate: sampleRate,
	}
	s.BaseNode = phonograph.NewBaseNode(ctx, s, "sampled audio")
	s.Scheduler = phonograph.NewScheduler(s.BaseNode)
	s.PlaybackRate = s.AddParam("playbackRate", 1, 0, 16)
	s.AddOutput(bus.NumChannels())
	return s, nil
}

// SetBus replaces played signal with the next commit.
func (s *SampledAudio) SetBus(bus phonograph.Bus, sampleRate int) error {
	if err := validateSample(bus, sampleRate); err != nil {
		return err
	}
	return s.Mutate(func() {
		s.bus = bus
		s.sampleRate = sampleRate
		s.position = 0
		s.Output(0).SetNumberOfChannels(bus.NumChannels())
	})
}

func validateSample(bus phonograph.Bus, sampleRate int) error {
	if bus.NumChannels() == 0 || bus.Size() == 0 {
		return fmt.Errorf("sampled audio: empty bus")
	}
	if bus.NumChannels() > phonograph.MaxChannels {
		return fmt.Errorf("sampled audio: %d channels: %w", bus.NumChannels(), phonograph.ErrChannelMismatch)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sampled audio: sample rate %d: %w", sampleRate, phonograph.ErrInvalidConfig)
	}
	return nil
}

// Process implements phonograph.Node.
func (s *SampledAudio) Process(r *phonograph.RenderLock, frames int) {
	if s.Starting() {
		s.position = 0
		s.loops = s.LoopCount()
	}
	var (
		out   = s.Output(0).Bus(r)
		rate  = s.PlaybackRate.Values(r)
		ratio = float64(s.sampleRate) / float64(r.SampleRate())
		size  = float64(s.bus.Size())
	)
	offset, count := s.Span()
	for i := offset; i < offset+count; i++ {
		if s.position >= size {
			// one step can pass the end more than once.
			wraps := int(s.position / size)
			if s.loops >= 0 && wraps > s.loops {
				out.ZeroRange(i, frames)
				s.End()
				return
			}
			if s.loops > 0 {
				s.loops -= wraps
			}
			s.position = math.Mod(s.position, size)
		}
		s.read(out, i)
		s.position += rate[i] * ratio
	}
}

// read writes interpolated frame at current position into i-th frame
// of out.
func (s *SampledAudio) read(out phonograph.Bus, i int) {
	idx := int(s.position)
	frac := s.position - float64(idx)
	next := idx + 1
	if next >= s.bus.Size() {
		next = idx
	}
	for c := range out {
		src := s.bus[c%len(s.bus)]
		out[c][i] = src[idx] + (src[next]-src[idx])*frac
	}
}
