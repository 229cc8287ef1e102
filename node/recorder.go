package node

import (
	"fmt"
	"sync/atomic"

	"github.com/dudk/phonograph"
)

// Recorder passes its input through and captures it while recording.
// Frames are captured into preallocated storage, frames beyond its
// capacity are dropped and counted.
type Recorder struct {
	*phonograph.BaseNode

	recording atomic.Bool
	dropped   atomic.Uint64

	// render goroutine state.
	buffer phonograph.Bus
	frames int
}

// NewRecorder creates recorder of provided channel count which can keep
// up to capacity frames.
func NewRecorder(ctx *phonograph.Context, channels, capacity int) (*Recorder, error) {
	if channels < 1 || channels > phonograph.MaxChannels {
		return nil, fmt.Errorf("recorder: %d channels: %w", channels, phonograph.ErrChannelMismatch)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("recorder: capacity %d: %w", capacity, phonograph.ErrInvalidConfig)
	}
	rec := &Recorder{
		buffer: phonograph.NewBus(channels, capacity),
	}
	rec.BaseNode = phonograph.NewBaseNode(ctx, rec, "recorder")
	rec.AddInput(phonograph.WithExplicitChannels(channels))
	rec.AddOutput(channels)
	return rec, nil
}

// StartRecording starts capturing input from the next quantum.
func (rec *Recorder) StartRecording() {
	rec.recording.Store(true)
}

// StopRecording stops capturing input.
func (rec *Recorder) StopRecording() {
	rec.recording.Store(false)
}

// IsRecording reports if recorder captures input.
func (rec *Recorder) IsRecording() bool {
	return rec.recording.Load()
}

// Dropped returns number of frames which didn't fit into recorder.
func (rec *Recorder) Dropped() uint64 {
	return rec.dropped.Load()
}

// Recorded returns a copy of captured signal.
func (rec *Recorder) Recorded() (phonograph.Bus, error) {
	var b phonograph.Bus
	err := rec.Context().View(func() {
		b = rec.buffer.Slice(0, rec.frames).Clone()
	})
	return b, err
}

// Clear drops captured signal with the next commit.
func (rec *Recorder) Clear() error {
	return rec.Mutate(func() {
		rec.frames = 0
		rec.dropped.Store(0)
	})
}

// Process implements phonograph.Node.
func (rec *Recorder) Process(r *phonograph.RenderLock, frames int) {
	in := rec.Input(0).Bus(r)
	out := rec.Output(0).Bus(r)
	out.CopyFrom(in)
	if !rec.recording.Load() {
		return
	}
	n := min(frames, rec.buffer.Size()-rec.frames)
	for c := range rec.buffer {
		copy(rec.buffer[c][rec.frames:rec.frames+n], in[c][:n])
	}
	rec.frames += n
	if n < frames {
		rec.dropped.Add(uint64(frames - n))
	}
}
