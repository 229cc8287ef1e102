package phonograph

import (
	"fmt"
	"math"
	"sync/atomic"
)

// State of a scheduled node.
type State int32

const (
	// Unscheduled node wasn't started yet.
	Unscheduled State = iota
	// Scheduled node waits for its start time.
	Scheduled
	// Playing node produces signal.
	Playing
	// Stopped node was stopped before it started playing.
	Stopped
	// Finished node has reached its stop time, exhausted its source or
	// failed.
	Finished
)

var stateNames = [...]string{"unscheduled", "scheduled", "playing", "stopped", "finished"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// InfiniteLoop makes scheduled source repeat until stopped.
const InfiniteLoop = -1

const noStop = math.MaxUint64

// ScheduledNode is implemented by nodes which embed *Scheduler.
type ScheduledNode interface {
	Node
	Start(when float64) error
	Stop(when float64) error
	State() State
}

// Scheduler keeps start and stop times of a source node. Transitions
// are sample accurate: the engine silences frames outside of the
// [start, stop) span and skips Process for quanta without playing frames.
type Scheduler struct {
	node    *BaseNode
	state   atomic.Int32
	onEnded atomic.Pointer[func()]

	// render goroutine state.
	armed     bool
	starting  bool
	startAt   uint64
	stopAt    uint64
	loopCount int
	offset    int
	count     int
}

// NewScheduler attaches scheduling state to the node.
func NewScheduler(b *BaseNode) *Scheduler {
	s := &Scheduler{
		node:   b,
		stopAt: noStop,
	}
	b.scheduler = s
	return s
}

// State returns current scheduling state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start schedules node to play at when seconds of context time.
func (s *Scheduler) Start(when float64) error {
	return s.Schedule(when, 0)
}

// Schedule schedules node to play at when seconds of context time.
// Sources which support looping repeat loopCount more times, or until
// stopped when loopCount is InfiniteLoop.
func (s *Scheduler) Schedule(when float64, loopCount int) error {
	if math.IsNaN(when) {
		return fmt.Errorf("%s start at %v: %w", s.node.name, when, ErrInvalidState)
	}
	if !s.state.CompareAndSwap(int32(Unscheduled), int32(Scheduled)) {
		return fmt.Errorf("%s is %v: %w", s.node.name, s.State(), ErrInvalidState)
	}
	err := s.node.ctx.enqueue(change{
		kind:  startChange,
		sched: s,
		frame: s.node.ctx.frameAt(when),
		loops: loopCount,
	})
	if err != nil {
		s.state.CompareAndSwap(int32(Scheduled), int32(Unscheduled))
	}
	return err
}

// Stop schedules node to stop at when seconds of context time. Stop
// time in the past takes effect at the next quantum boundary. Stopping
// a node at or before its start time cancels it.
func (s *Scheduler) Stop(when float64) error {
	switch s.State() {
	case Unscheduled:
		return fmt.Errorf("%s is %v: %w", s.node.name, Unscheduled, ErrInvalidState)
	case Stopped, Finished:
		return nil
	}
	return s.node.ctx.enqueue(change{
		kind:  stopChange,
		sched: s,
		frame: s.node.ctx.frameAt(when),
	})
}

// Reset returns stopped or finished node to unscheduled state, so it
// can be started again.
func (s *Scheduler) Reset() error {
	if s.state.CompareAndSwap(int32(Finished), int32(Unscheduled)) ||
		s.state.CompareAndSwap(int32(Stopped), int32(Unscheduled)) {
		return nil
	}
	return fmt.Errorf("%s is %v: %w", s.node.name, s.State(), ErrInvalidState)
}

// OnEnded sets a callback which is invoked when node finishes. It's
// called on the context event goroutine.
func (s *Scheduler) OnEnded(fn func()) {
	if fn == nil {
		s.onEnded.Store(nil)
		return
	}
	s.onEnded.Store(&fn)
}

// LoopCount returns loop count of the current schedule. Must be called
// from Process only.
func (s *Scheduler) LoopCount() int {
	return s.loopCount
}

// Starting reports if node started playing in the current quantum.
// Must be called from Process only.
func (s *Scheduler) Starting() bool {
	return s.starting
}

// Span returns offset and count of frames node plays within the current
// quantum. Must be called from Process only.
func (s *Scheduler) Span() (offset, count int) {
	return s.offset, s.count
}

// End finishes node from Process, for sources that ran out of signal.
func (s *Scheduler) End() {
	s.finish()
}

func (s *Scheduler) start(frame uint64, loops int) {
	if s.State() != Scheduled {
		return
	}
	s.armed = true
	s.startAt = frame
	s.stopAt = noStop
	s.loopCount = loops
}

func (s *Scheduler) stop(frame uint64) {
	if !s.armed {
		return
	}
	if s.State() == Scheduled && frame <= s.startAt {
		s.armed = false
		s.state.CompareAndSwap(int32(Scheduled), int32(Stopped))
		return
	}
	s.stopAt = frame
}

// update advances state machine and returns playing span of the quantum.
func (s *Scheduler) update(r *RenderLock) (int, int) {
	s.starting = false
	s.offset, s.count = 0, 0
	if !s.armed {
		return 0, 0
	}
	begin, end := r.frame, r.frame+uint64(r.frames)
	from, to := max(s.startAt, begin), min(s.stopAt, end)
	if s.stopAt <= begin || from >= to && to == s.stopAt {
		s.finish()
		return 0, 0
	}
	if from >= end {
		return 0, 0
	}
	if s.State() == Scheduled {
		s.state.Store(int32(Playing))
		s.starting = true
	}
	s.offset, s.count = int(from-begin), int(to-from)
	if s.stopAt <= end {
		s.finish()
	}
	return s.offset, s.count
}

// finish moves node to finished state and notifies ended callback.
func (s *Scheduler) finish() {
	s.armed = false
	if State(s.state.Swap(int32(Finished))) == Finished {
		return
	}
	if fn := s.onEnded.Load(); fn != nil {
		s.node.ctx.notify(*fn)
	}
}
