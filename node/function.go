package node

import (
	"fmt"

	"github.com/dudk/phonograph"
)

// FunctionFunc fills values of a channel for the playing span of the
// quantum. It's called on render goroutine and must not allocate, lock
// or block. Time of values[i] is r.TimeAt(offset + i).
type FunctionFunc func(r *phonograph.RenderLock, channel, offset int, values []float64)

// Function is a scheduled source which signal is produced by a function.
type Function struct {
	*phonograph.BaseNode
	*phonograph.Scheduler

	fn FunctionFunc
}

var _ phonograph.ScheduledNode = (*Function)(nil)

// NewFunction creates function source with provided channel count.
func NewFunction(ctx *phonograph.Context, channels int, fn FunctionFunc) (*Function, error) {
	if fn == nil {
		return nil, fmt.Errorf("function: nil func")
	}
	if channels < 1 || channels > phonograph.MaxChannels {
		return nil, fmt.Errorf("function: %d channels: %w", channels, phonograph.ErrChannelMismatch)
	}
	f := &Function{fn: fn}
	f.BaseNode = phonograph.NewBaseNode(ctx, f, "function")
	f.Scheduler = phonograph.NewScheduler(f.BaseNode)
	f.AddOutput(channels)
	return f, nil
}

// SetFunc replaces function with the next commit.
func (f *Function) SetFunc(fn FunctionFunc) error {
	if fn == nil {
		return fmt.Errorf("function: nil func")
	}
	return f.Mutate(func() {
		f.fn = fn
	})
}

// Process implements phonograph.Node.
func (f *Function) Process(r *phonograph.RenderLock, frames int) {
	offset, count := f.Span()
	for c, values := range f.Output(0).Bus(r) {
		f.fn(r, c, offset, values[offset:offset+count])
	}
}
