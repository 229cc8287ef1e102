package phonograph_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/internal/mock"
	"github.com/dudk/phonograph/node"
)

const expectedGraph = `destination (active) (inputs active)
input 0: active signal
   gain (active) (inputs active)
   driven param has non-zero values
      gain: constant (playing) (no inputs)
   input 0: active signal
      oscillator (playing) (no inputs)
*--> oscillator
   processor (active) (inputs silent)
   input 0: zero signal
      source (active) (no inputs)
`

func TestWriteGraph(t *testing.T) {
	ctx := newOffline(t, 100*time.Millisecond, 1)
	defer ctx.Close()

	osc := node.NewOscillator(ctx, node.Square)
	gain := node.NewGain(ctx)
	lfo := node.NewConstantSource(ctx, 0.5)
	silent := mock.NewSource(ctx, "source", 1, 0)
	proc := mock.NewProcessor(ctx, "processor")
	dst := ctx.Destination()
	assert.NoError(t, ctx.Connect(gain, osc, 0, 0))
	assert.NoError(t, ctx.ConnectParam(gain.Gain, lfo, 0))
	assert.NoError(t, ctx.Connect(dst, gain, 0, 0))
	assert.NoError(t, ctx.Connect(dst, osc, 0, 0))
	assert.NoError(t, ctx.Connect(proc, silent, 0, 0))
	assert.NoError(t, ctx.Connect(dst, proc, 0, 0))
	assert.NoError(t, osc.Start(0))
	assert.NoError(t, lfo.Start(0))
	render(t, ctx)

	var buf bytes.Buffer
	assert.NoError(t, ctx.WriteGraph(&buf))
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expectedGraph),
		B:        difflib.SplitLines(buf.String()),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	assert.NoError(t, err)
	assert.Empty(t, diff)

	reports := ctx.Traverse()
	names := make([]string, 0, len(reports))
	for _, r := range reports {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"destination", "gain", "constant", "oscillator", "oscillator", "processor", "source"}, names)
	assert.Equal(t, 0, reports[0].Depth)
	assert.Equal(t, []bool{true}, reports[0].Inputs)
	assert.Equal(t, []phonograph.ParamReport{{Name: "gain", NonZero: true}}, reports[1].Params)
	assert.Equal(t, "gain", reports[2].Via)
	assert.Equal(t, 6, reports[2].Depth)
	assert.True(t, reports[4].Revisit)
	assert.Equal(t, phonograph.InputsSilent, reports[5].Status)
	assert.Equal(t, phonograph.NoInputs, reports[6].Status)
	assert.Equal(t, phonograph.Playing.String(), reports[3].State)
}

func TestTraverseAutomaticPull(t *testing.T) {
	ctx := newRealtime(t)
	defer ctx.Close()

	src := mock.NewSource(ctx, "source", 1, 1)
	proc := mock.NewProcessor(ctx, "processor")
	assert.NoError(t, ctx.Connect(proc, src, 0, 0))
	assert.NoError(t, ctx.AddAutomaticPull(proc))
	out := phonograph.NewBus(1, ctx.QuantumSize())
	ctx.RenderQuantum(out)

	reports := ctx.Traverse()
	assert.Len(t, reports, 3)
	assert.Equal(t, "destination", reports[0].Name)
	assert.Equal(t, phonograph.InputsSilent, reports[0].Status)
	assert.Equal(t, "processor", reports[1].Name)
	assert.Equal(t, 0, reports[1].Depth)
	assert.Equal(t, phonograph.InputsActive, reports[1].Status)
	assert.Equal(t, "source", reports[2].Name)
}
