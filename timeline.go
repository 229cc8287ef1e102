package phonograph

import (
	"math"
	"sort"
)

type eventKind int

const (
	setValueEvent eventKind = iota
	linearRampEvent
	exponentialRampEvent
	setTargetEvent
)

// automationEvent is a time-stamped value change of a param.
type automationEvent struct {
	kind         eventKind
	time         float64
	value        float64
	timeConstant float64
}

// timeline is owned by render goroutine. Events are kept sorted by time.
type timeline struct {
	events []automationEvent
}

// insert adds event keeping time order. Events with equal time keep
// insertion order.
func (tl *timeline) insert(e automationEvent) {
	i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].time > e.time })
	tl.events = append(tl.events, automationEvent{})
	copy(tl.events[i+1:], tl.events[i:])
	tl.events[i] = e
}

// cancel removes events scheduled at or after t.
func (tl *timeline) cancel(t float64) {
	i := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].time >= t })
	tl.events = tl.events[:i]
}

func (tl *timeline) empty() bool {
	return len(tl.events) == 0
}

// valueAt resolves automation value at time t. Value before the first
// event is the intrinsic one.
func (tl *timeline) valueAt(t, intrinsic float64) float64 {
	prevValue, prevTime := intrinsic, 0.0
	for j, e := range tl.events {
		if e.time > t {
			return ramp(e, prevValue, prevTime, t)
		}
		switch e.kind {
		case setTargetEvent:
			start := prevValue
			end := t
			if j+1 < len(tl.events) {
				next := tl.events[j+1]
				if next.time > t {
					if next.kind == linearRampEvent || next.kind == exponentialRampEvent {
						return ramp(next, start, e.time, t)
					}
				} else {
					end = next.time
				}
			}
			prevValue = approach(start, e.value, end-e.time, e.timeConstant)
			prevTime = end
		default:
			prevValue, prevTime = e.value, e.time
		}
	}
	return prevValue
}

// prune drops events that can't affect values at or after t. It returns
// the settled value and true when the whole timeline has completed.
func (tl *timeline) prune(t float64) (float64, bool) {
	for len(tl.events) > 1 {
		next := tl.events[1]
		if next.time > t || next.kind == setTargetEvent {
			break
		}
		tl.events = tl.events[1:]
	}
	if len(tl.events) == 1 && tl.events[0].time <= t && tl.events[0].kind != setTargetEvent {
		v := tl.events[0].value
		tl.events = tl.events[:0]
		return v, true
	}
	return 0, false
}

// ramp interpolates toward e from (v0, t0) at time t when e is a ramp.
// Non-ramp events hold previous value until they're reached.
func ramp(e automationEvent, v0, t0, t float64) float64 {
	span := e.time - t0
	if span <= 0 {
		return v0
	}
	pos := (t - t0) / span
	switch e.kind {
	case linearRampEvent:
		return v0 + (e.value-v0)*pos
	case exponentialRampEvent:
		if v0 == 0 || e.value == 0 || (v0 < 0) != (e.value < 0) {
			return v0
		}
		return v0 * math.Pow(e.value/v0, pos)
	}
	return v0
}

// approach evaluates exponential approach from start to target after
// elapsed seconds.
func approach(start, target, elapsed, timeConstant float64) float64 {
	if timeConstant <= 0 {
		return target
	}
	return target + (start-target)*math.Exp(-elapsed/timeConstant)
}
