package phonograph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimelineValueAt(t *testing.T) {
	tests := []struct {
		name      string
		events    []automationEvent
		intrinsic float64
		values    map[float64]float64
	}{
		{
			name:      "empty",
			intrinsic: 0.3,
			values:    map[float64]float64{0: 0.3, 10: 0.3},
		},
		{
			name: "set value",
			events: []automationEvent{
				{kind: setValueEvent, time: 1, value: 0.5},
				{kind: setValueEvent, time: 2, value: 0.7},
			},
			intrinsic: 0.1,
			values:    map[float64]float64{0.5: 0.1, 1: 0.5, 1.5: 0.5, 2: 0.7, 3: 0.7},
		},
		{
			name: "linear ramp",
			events: []automationEvent{
				{kind: setValueEvent, time: 1, value: 0},
				{kind: linearRampEvent, time: 2, value: 1},
			},
			values: map[float64]float64{1: 0, 1.25: 0.25, 1.5: 0.5, 2: 1, 5: 1},
		},
		{
			name: "ramp from intrinsic",
			events: []automationEvent{
				{kind: linearRampEvent, time: 2, value: 1},
			},
			intrinsic: 0,
			values:    map[float64]float64{0: 0, 1: 0.5, 2: 1},
		},
		{
			name: "exponential ramp",
			events: []automationEvent{
				{kind: setValueEvent, time: 0, value: 1},
				{kind: exponentialRampEvent, time: 1, value: 4},
			},
			values: map[float64]float64{0: 1, 0.5: 2, 1: 4},
		},
		{
			name: "exponential ramp through zero",
			events: []automationEvent{
				{kind: setValueEvent, time: 0, value: 0},
				{kind: exponentialRampEvent, time: 1, value: 1},
			},
			values: map[float64]float64{0.5: 0, 1: 1},
		},
		{
			name: "set target",
			events: []automationEvent{
				{kind: setValueEvent, time: 0, value: 1},
				{kind: setTargetEvent, time: 1, value: 0, timeConstant: 1},
			},
			values: map[float64]float64{0.5: 1, 1: 1, 2: math.Exp(-1), 3: math.Exp(-2)},
		},
		{
			name: "set target then set value",
			events: []automationEvent{
				{kind: setValueEvent, time: 0, value: 1},
				{kind: setTargetEvent, time: 1, value: 0, timeConstant: 1},
				{kind: setValueEvent, time: 3, value: 0.5},
			},
			values: map[float64]float64{2: math.Exp(-1), 3: 0.5, 4: 0.5},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var tl timeline
			for _, e := range test.events {
				tl.insert(e)
			}
			for at, expected := range test.values {
				assert.InDelta(t, expected, tl.valueAt(at, test.intrinsic), 1e-9, "time %v", at)
			}
		})
	}
}

func TestTimelineInsertOrder(t *testing.T) {
	var tl timeline
	tl.insert(automationEvent{time: 2, value: 2})
	tl.insert(automationEvent{time: 1, value: 1})
	tl.insert(automationEvent{time: 2, value: 3})
	tl.insert(automationEvent{time: 0, value: 0})
	values := make([]float64, 0, len(tl.events))
	for _, e := range tl.events {
		values = append(values, e.value)
	}
	assert.Equal(t, []float64{0, 1, 2, 3}, values)

	tl.cancel(2)
	assert.Len(t, tl.events, 2)
	tl.cancel(0)
	assert.True(t, tl.empty())
}

func TestTimelinePrune(t *testing.T) {
	var tl timeline
	tl.insert(automationEvent{kind: setValueEvent, time: 0, value: 0})
	tl.insert(automationEvent{kind: linearRampEvent, time: 1, value: 1})
	tl.insert(automationEvent{kind: setValueEvent, time: 2, value: 0.5})

	_, done := tl.prune(0.5)
	assert.False(t, done)
	assert.Len(t, tl.events, 3)
	assert.InDelta(t, 0.75, tl.valueAt(0.75, 0), 1e-9)

	_, done = tl.prune(1.5)
	assert.False(t, done)
	assert.Len(t, tl.events, 2)
	assert.InDelta(t, 1, tl.valueAt(1.5, 0), 1e-9)

	v, done := tl.prune(2)
	assert.True(t, done)
	assert.Equal(t, 0.5, v)
	assert.True(t, tl.empty())
}
