package phonograph_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/internal/mock"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/node"
)

// sampleRate makes 100ms exactly 10 quanta of 128 frames.
const sampleRate = 12800

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newOffline(t *testing.T, d time.Duration, channels int) *phonograph.Context {
	t.Helper()
	ctx, err := phonograph.NewOfflineContext(
		phonograph.DeviceConfig{SampleRate: sampleRate, Channels: channels},
		d,
		phonograph.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	return ctx
}

func newRealtime(t *testing.T, options ...phonograph.Option) *phonograph.Context {
	t.Helper()
	options = append([]phonograph.Option{phonograph.WithLogger(log.Discard())}, options...)
	ctx, err := phonograph.NewRealtimeContext(
		phonograph.DeviceConfig{SampleRate: sampleRate, Channels: 1},
		options...,
	)
	require.NoError(t, err)
	return ctx
}

func render(t *testing.T, ctx *phonograph.Context) phonograph.Bus {
	t.Helper()
	require.NoError(t, ctx.StartOfflineRendering())
	require.NoError(t, ctx.Wait())
	return ctx.Rendered()
}

func TestNewContext(t *testing.T) {
	tests := []struct {
		name    string
		cfg     phonograph.DeviceConfig
		options []phonograph.Option
	}{
		{
			name: "zero sample rate",
			cfg:  phonograph.DeviceConfig{Channels: 2},
		},
		{
			name: "no channels",
			cfg:  phonograph.DeviceConfig{SampleRate: 44100},
		},
		{
			name: "too many channels",
			cfg:  phonograph.DeviceConfig{SampleRate: 44100, Channels: phonograph.MaxChannels + 1},
		},
		{
			name:    "zero quantum",
			cfg:     phonograph.DeviceConfig{SampleRate: 44100, Channels: 2},
			options: []phonograph.Option{phonograph.WithQuantumSize(0)},
		},
		{
			name:    "zero change queue",
			cfg:     phonograph.DeviceConfig{SampleRate: 44100, Channels: 2},
			options: []phonograph.Option{phonograph.WithChangeQueueSize(0)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, err := phonograph.NewRealtimeContext(test.cfg, test.options...)
			assert.ErrorIs(t, err, phonograph.ErrInvalidConfig)
			assert.Nil(t, ctx)
		})
	}

	_, err := phonograph.NewOfflineContext(phonograph.DeviceConfig{SampleRate: 44100, Channels: 2}, 0)
	assert.ErrorIs(t, err, phonograph.ErrInvalidConfig)

	ctx := newRealtime(t, phonograph.WithName("test"), phonograph.WithQuantumSize(256))
	defer ctx.Close()
	assert.Equal(t, "test", ctx.Name())
	assert.Equal(t, phonograph.Realtime, ctx.Mode())
	assert.Equal(t, 256, ctx.QuantumSize())
	assert.Equal(t, sampleRate, ctx.SampleRate())
	assert.Equal(t, 1, ctx.Destination().NumberOfChannels())
	assert.NotEmpty(t, ctx.ID())
}

func TestOfflineRender(t *testing.T) {
	ctx, err := phonograph.NewOfflineContext(
		phonograph.DeviceConfig{SampleRate: 44100, Channels: 2},
		time.Second,
		phonograph.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	defer ctx.Close()

	osc := node.NewOscillator(ctx, node.Sine)
	gain := node.NewGain(ctx)
	gain.Gain.SetValue(0.5)
	assert.NoError(t, ctx.Connect(gain, osc, 0, 0))
	assert.NoError(t, ctx.Connect(ctx.Destination(), gain, 0, 0))
	assert.NoError(t, osc.Start(0))

	var completed bool
	assert.NoError(t, ctx.SetOfflineRenderCompleteCallback(func() {
		completed = true
	}))
	rendered := render(t, ctx)
	assert.True(t, completed)
	assert.Equal(t, 2, rendered.NumChannels())
	assert.Equal(t, 44100, rendered.Size())
	assert.LessOrEqual(t, rendered.MaxAbs(), 0.5)
	assert.InDelta(t, 0.5, rendered.MaxAbs(), 1e-3)
	assert.Equal(t, rendered[0], rendered[1])
	assert.GreaterOrEqual(t, ctx.CurrentFrame(), uint64(44100))
	assert.Equal(t, phonograph.Playing, osc.State())

	assert.ErrorIs(t, ctx.StartOfflineRendering(), phonograph.ErrInvalidState)
}

func TestFanIn(t *testing.T) {
	ctx := newOffline(t, 100*time.Millisecond, 1)
	defer ctx.Close()

	for i := 0; i < 2; i++ {
		src := node.NewConstantSource(ctx, 0.3)
		assert.NoError(t, ctx.Connect(ctx.Destination(), src, 0, 0))
		assert.NoError(t, src.Start(0))
	}
	rendered := render(t, ctx)
	assert.Equal(t, 1280, rendered.Size())
	for _, v := range rendered[0] {
		assert.InDelta(t, 0.6, v, 1e-12)
	}
}

func TestMemoization(t *testing.T) {
	ctx := newOffline(t, 100*time.Millisecond, 1)
	defer ctx.Close()

	src := mock.NewSource(ctx, "source", 1, 0.1)
	left := mock.NewProcessor(ctx, "left")
	right := mock.NewProcessor(ctx, "right")
	assert.NoError(t, ctx.Connect(left, src, 0, 0))
	assert.NoError(t, ctx.Connect(right, src, 0, 0))
	assert.NoError(t, ctx.Connect(ctx.Destination(), left, 0, 0))
	assert.NoError(t, ctx.Connect(ctx.Destination(), right, 0, 0))

	rendered := render(t, ctx)
	calls, frames := src.Count()
	assert.Equal(t, 10, calls)
	assert.Equal(t, 1280, frames)
	calls, _ = left.Count()
	assert.Equal(t, 10, calls)
	assert.InDelta(t, 0.2, rendered[0][1279], 1e-12)
}

func TestTimeAdvance(t *testing.T) {
	tests := []struct {
		quantumSize int
		sampleRate  int
		quanta      int
	}{
		{quantumSize: 128, sampleRate: 12800, quanta: 100},
		{quantumSize: 128, sampleRate: 44100, quanta: 345},
		{quantumSize: 256, sampleRate: 48000, quanta: 1000},
		{quantumSize: 441, sampleRate: 44100, quanta: 100},
		{quantumSize: 1, sampleRate: 8000, quanta: 8001},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d frames at %d Hz", test.quantumSize, test.sampleRate), func(t *testing.T) {
			ctx, err := phonograph.NewRealtimeContext(
				phonograph.DeviceConfig{SampleRate: test.sampleRate, Channels: 1},
				phonograph.WithLogger(log.Discard()),
				phonograph.WithQuantumSize(test.quantumSize),
			)
			require.NoError(t, err)
			defer ctx.Close()

			out := phonograph.NewBus(1, ctx.QuantumSize())
			for i := 0; i < test.quanta; i++ {
				ctx.RenderQuantum(out)
			}
			frames := test.quanta * test.quantumSize
			assert.Equal(t, uint64(frames), ctx.CurrentFrame())
			assert.Equal(t, float64(frames)/float64(test.sampleRate), ctx.CurrentTime())
			assert.Zero(t, ctx.SilentQuanta())
		})
	}
}

func TestConnections(t *testing.T) {
	ctx := newRealtime(t)
	defer ctx.Close()

	dst := ctx.Destination()
	src := mock.NewSource(ctx, "source", 1, 1)
	lfo := node.NewConstantSource(ctx, 1)
	gain := node.NewGain(ctx)

	assert.NoError(t, ctx.Connect(gain, src, 0, 0))
	assert.NoError(t, ctx.Connect(dst, gain, 0, 0))
	assert.NoError(t, ctx.ConnectParam(gain.Gain, lfo, 0))
	assert.False(t, ctx.IsConnected(dst, gain))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.True(t, ctx.IsConnected(dst, gain))
	assert.True(t, ctx.IsConnected(gain, src))
	assert.True(t, ctx.IsConnected(gain, lfo))

	// repeated connect is idempotent.
	assert.NoError(t, ctx.Connect(dst, gain, 0, 0))
	assert.NoError(t, ctx.Disconnect(dst, gain, 0, 0))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.False(t, ctx.IsConnected(dst, gain))

	assert.NoError(t, ctx.DisconnectParam(gain.Gain, lfo, phonograph.AnyPort))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.False(t, ctx.IsConnected(gain, lfo))

	assert.NoError(t, ctx.ConnectParam(gain.Gain, lfo, 0))
	assert.NoError(t, ctx.Connect(dst, lfo, 0, 0))
	assert.NoError(t, ctx.Disconnect(nil, lfo, phonograph.AnyPort, phonograph.AnyPort))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.False(t, ctx.IsConnected(gain, lfo))
	assert.False(t, ctx.IsConnected(dst, lfo))

	assert.NoError(t, ctx.DisconnectInput(gain, 0))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.False(t, ctx.IsConnected(gain, src))

	assert.NoError(t, ctx.Connect(gain, src, 0, 0))
	assert.NoError(t, ctx.Connect(dst, gain, 0, 0))
	assert.NoError(t, ctx.Remove(gain))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.False(t, ctx.IsConnected(gain, src))
	assert.False(t, ctx.IsConnected(dst, gain))
}

func TestConnectErrors(t *testing.T) {
	ctx := newRealtime(t)
	defer ctx.Close()
	other := newRealtime(t)
	defer other.Close()

	src := mock.NewSource(ctx, "source", 1, 1)
	surround := mock.NewSource(ctx, "surround", 6, 1)
	foreign := mock.NewSource(other, "foreign", 1, 1)
	panner := node.NewStereoPanner(ctx)

	tests := []struct {
		name     string
		connect  func() error
		expected error
	}{
		{
			name:     "nil destination",
			connect:  func() error { return ctx.Connect(nil, src, 0, 0) },
			expected: phonograph.ErrNilNode,
		},
		{
			name:     "input index",
			connect:  func() error { return ctx.Connect(panner, src, 1, 0) },
			expected: phonograph.ErrInvalidIndex,
		},
		{
			name:     "output index",
			connect:  func() error { return ctx.Connect(panner, src, 0, 1) },
			expected: phonograph.ErrInvalidIndex,
		},
		{
			name:     "channel count",
			connect:  func() error { return ctx.Connect(panner, surround, 0, 0) },
			expected: phonograph.ErrChannelMismatch,
		},
		{
			name:     "foreign node",
			connect:  func() error { return ctx.Connect(ctx.Destination(), foreign, 0, 0) },
			expected: phonograph.ErrForeignNode,
		},
		{
			name:     "nil param",
			connect:  func() error { return ctx.ConnectParam(nil, src, 0) },
			expected: phonograph.ErrNilParam,
		},
		{
			name:     "foreign param",
			connect:  func() error { return other.ConnectParam(panner.Pan, foreign, 0) },
			expected: phonograph.ErrForeignNode,
		},
		{
			name:     "disconnect input index",
			connect:  func() error { return ctx.DisconnectInput(panner, 2) },
			expected: phonograph.ErrInvalidIndex,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ErrorIs(t, test.connect(), test.expected)
		})
	}
}

func TestConcurrentChanges(t *testing.T) {
	ctx := newRealtime(t, phonograph.WithChangeQueueSize(64))
	defer ctx.Close()

	// every committed state sums whole number of 0.1 sources, rendered
	// quantum must be constant and match one of them.
	const value = 0.1
	dst := ctx.Destination()
	stop := make(chan struct{})
	var (
		renderer sync.WaitGroup
		quanta   int
		torn     int
	)
	renderer.Add(1)
	go func() {
		defer renderer.Done()
		out := phonograph.NewBus(1, ctx.QuantumSize())
		for {
			select {
			case <-stop:
				return
			default:
			}
			ctx.RenderQuantum(out)
			quanta++
			v := out[0][0]
			k := math.Round(v / value)
			if math.Abs(v/value-k) > 1e-9 {
				torn++
				continue
			}
			for _, f := range out[0] {
				if f != v {
					torn++
					break
				}
			}
		}
	}()

	sources := make([]*mock.Source, 16)
	var controls sync.WaitGroup
	for i := 0; i < len(sources); i += 2 {
		a := mock.NewSource(ctx, "a", 1, value)
		b := mock.NewSource(ctx, "b", 1, value)
		sources[i], sources[i+1] = a, b
		controls.Add(1)
		go func() {
			defer controls.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, ctx.Connect(dst, a, 0, 0))
				assert.NoError(t, ctx.Disconnect(dst, b, phonograph.AnyPort, phonograph.AnyPort))
				assert.NoError(t, ctx.Connect(dst, b, 0, 0))
				assert.NoError(t, ctx.Disconnect(dst, a, phonograph.AnyPort, phonograph.AnyPort))
			}
			assert.NoError(t, ctx.Disconnect(dst, b, phonograph.AnyPort, phonograph.AnyPort))
		}()
	}
	controls.Wait()
	close(stop)
	renderer.Wait()
	assert.Positive(t, quanta)
	assert.Zero(t, torn)

	assert.NoError(t, ctx.SynchronizeConnections())
	for _, src := range sources {
		assert.False(t, ctx.IsConnected(dst, src))
	}
	out := phonograph.NewBus(1, ctx.QuantumSize())
	ctx.RenderQuantum(out)
	assert.True(t, out.IsSilent())
}

func TestScheduling(t *testing.T) {
	ctx := newOffline(t, 300*time.Millisecond, 1)
	defer ctx.Close()

	src := mock.NewScheduled(ctx, "scheduled", 1)
	ended := make(chan struct{})
	src.OnEnded(func() {
		close(ended)
	})
	assert.NoError(t, ctx.Connect(ctx.Destination(), src, 0, 0))
	assert.NoError(t, src.Start(0.1))
	assert.NoError(t, src.Stop(0.2))
	assert.ErrorIs(t, src.Start(0), phonograph.ErrInvalidState)

	rendered := render(t, ctx)
	for i, v := range rendered[0] {
		if i >= 1280 && i < 2560 {
			assert.Equal(t, 1.0, v, "frame %d", i)
		} else {
			assert.Equal(t, 0.0, v, "frame %d", i)
		}
	}
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("ended callback wasn't called")
	}
	assert.Equal(t, phonograph.Finished, src.State())
	// quanta without playing frames are skipped.
	calls, _ := src.Count()
	assert.Equal(t, 10, calls)
	assert.ErrorIs(t, src.Start(0), phonograph.ErrInvalidState)
	assert.NoError(t, src.Stop(0))
	assert.NoError(t, src.Reset())
	assert.Equal(t, phonograph.Unscheduled, src.State())
	assert.ErrorIs(t, src.Reset(), phonograph.ErrInvalidState)
}

func TestSchedulerStates(t *testing.T) {
	ctx := newRealtime(t)
	defer ctx.Close()

	var src phonograph.ScheduledNode = mock.NewScheduled(ctx, "scheduled", 1)
	assert.True(t, src.Base().IsScheduled())
	assert.False(t, ctx.Destination().IsScheduled())
	_, ok := phonograph.Node(ctx.Destination()).(phonograph.ScheduledNode)
	assert.False(t, ok)
	assert.Equal(t, phonograph.Unscheduled, src.State())
	assert.Equal(t, "unscheduled", src.State().String())
	assert.ErrorIs(t, src.Stop(0), phonograph.ErrInvalidState)

	// stop before start cancels the node.
	assert.NoError(t, src.Start(0.5))
	assert.Equal(t, phonograph.Scheduled, src.State())
	assert.NoError(t, src.Stop(0.25))
	assert.NoError(t, ctx.SynchronizeConnections())
	assert.Equal(t, phonograph.Stopped, src.State())
	assert.NoError(t, src.Reset())

	// stop in the past finishes at the next quantum.
	assert.NoError(t, ctx.Connect(ctx.Destination(), src, 0, 0))
	assert.NoError(t, src.Start(0))
	out := phonograph.NewBus(1, ctx.QuantumSize())
	ctx.RenderQuantum(out)
	assert.Equal(t, phonograph.Playing, src.State())
	assert.Equal(t, 1.0, out[0][0])
	assert.NoError(t, src.Stop(0))
	ctx.RenderQuantum(out)
	assert.Equal(t, phonograph.Finished, src.State())
	assert.True(t, out.IsSilent())
}

func TestNodeFault(t *testing.T) {
	errTest := errors.New("test error")
	tests := []struct {
		name     string
		setup    func(*mock.Processor)
		expected string
	}{
		{
			name:     "panic",
			setup:    func(p *mock.Processor) { p.PanicOnCall = true },
			expected: "node processor: panic: processor mock",
		},
		{
			name:     "error",
			setup:    func(p *mock.Processor) { p.ErrorOnCall = errTest },
			expected: "node processor: test error",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := newOffline(t, 100*time.Millisecond, 1)
			defer ctx.Close()

			src := mock.NewSource(ctx, "source", 1, 1)
			proc := mock.NewProcessor(ctx, "processor")
			test.setup(proc)
			assert.NoError(t, ctx.Connect(proc, src, 0, 0))
			assert.NoError(t, ctx.Connect(ctx.Destination(), proc, 0, 0))

			rendered := render(t, ctx)
			assert.True(t, rendered.IsSilent())
			var nodeErr *phonograph.NodeError
			assert.ErrorAs(t, proc.Err(), &nodeErr)
			assert.EqualError(t, proc.Err(), test.expected)
			// faulted node isn't processed again.
			calls, _ := proc.Count()
			assert.Equal(t, 1, calls)
			calls, _ = src.Count()
			assert.Equal(t, 10, calls)
		})
	}
}

func TestFeedbackCycle(t *testing.T) {
	ctx := newOffline(t, 30*time.Millisecond, 1)
	defer ctx.Close()

	src := mock.NewSource(ctx, "source", 1, 1)
	forward := node.NewGain(ctx)
	feedback := node.NewGain(ctx)
	feedback.Gain.SetValue(0.5)
	assert.NoError(t, ctx.Connect(forward, src, 0, 0))
	assert.NoError(t, ctx.Connect(feedback, forward, 0, 0))
	assert.NoError(t, ctx.Connect(forward, feedback, 0, 0))
	assert.NoError(t, ctx.Connect(ctx.Destination(), forward, 0, 0))

	rendered := render(t, ctx)
	assert.Equal(t, 384, rendered.Size())
	// cycle adds one quantum of latency.
	assert.InDelta(t, 1, rendered[0][0], 1e-12)
	assert.InDelta(t, 1.5, rendered[0][128], 1e-12)
	assert.InDelta(t, 1.75, rendered[0][256], 1e-12)
}

func TestAutomaticPull(t *testing.T) {
	ctx := newOffline(t, 100*time.Millisecond, 1)
	defer ctx.Close()

	src := mock.NewSource(ctx, "source", 1, 1)
	assert.NoError(t, ctx.AddAutomaticPull(src))
	assert.NoError(t, ctx.AddAutomaticPull(src))
	rendered := render(t, ctx)

	calls, _ := src.Count()
	assert.Equal(t, 10, calls)
	assert.True(t, rendered.IsSilent())
	assert.NoError(t, ctx.RemoveAutomaticPull(src))
}

func TestOfflineClose(t *testing.T) {
	ctx := newOffline(t, time.Minute, 1)
	assert.ErrorIs(t, ctx.Wait(), phonograph.ErrInvalidState)
	assert.Nil(t, ctx.Rendered())

	// render loop can't take the graph lock while it's shared.
	err := ctx.View(func() {
		assert.NoError(t, ctx.StartOfflineRendering())
		assert.NoError(t, ctx.Close())
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, ctx.Wait(), context.Canceled)
	assert.NoError(t, ctx.Close())
	assert.ErrorIs(t, ctx.Connect(ctx.Destination(), mock.NewSource(ctx, "source", 1, 1), 0, 0), phonograph.ErrClosed)
}

func TestView(t *testing.T) {
	ctx := newRealtime(t, phonograph.WithLockTimeout(time.Millisecond))
	defer ctx.Close()
	src := mock.NewSource(ctx, "source", 1, 0.5)
	require.NoError(t, ctx.Connect(ctx.Destination(), src, 0, 0))
	require.NoError(t, ctx.SynchronizeConnections())
	require.True(t, ctx.IsConnected(ctx.Destination(), src))

	out := phonograph.NewBus(1, ctx.QuantumSize())
	committed := make(chan error, 1)
	err := ctx.View(func() {
		// render can't take the lock and outputs silence.
		rendered := make(chan struct{})
		go func() {
			defer close(rendered)
			ctx.RenderQuantum(out)
		}()
		<-rendered
		assert.True(t, out.IsSilent())
		assert.Equal(t, uint64(1), ctx.SilentQuanta())

		// commit waits until view returns.
		assert.NoError(t, ctx.Disconnect(ctx.Destination(), src, phonograph.AnyPort, phonograph.AnyPort))
		go func() {
			committed <- ctx.SynchronizeConnections()
		}()
		select {
		case <-committed:
			t.Error("commit went through shared lock")
		case <-time.After(10 * time.Millisecond):
		}
	})
	assert.NoError(t, err)
	assert.NoError(t, <-committed)
	assert.False(t, ctx.IsConnected(ctx.Destination(), src))
	ctx.RenderQuantum(out)
	assert.True(t, out.IsSilent())
	assert.Equal(t, uint64(1), ctx.SilentQuanta())
}

func TestRealtimeOfflineAPI(t *testing.T) {
	ctx := newRealtime(t)
	defer ctx.Close()

	assert.ErrorIs(t, ctx.StartOfflineRendering(), phonograph.ErrInvalidState)
	assert.ErrorIs(t, ctx.SetOfflineRenderCompleteCallback(func() {}), phonograph.ErrInvalidState)
	assert.ErrorIs(t, ctx.Wait(), phonograph.ErrInvalidState)
	assert.Nil(t, ctx.Rendered())
}

func TestEndedCallbackPanic(t *testing.T) {
	ctx := newOffline(t, 100*time.Millisecond, 1)
	src := mock.NewScheduled(ctx, "scheduled", 1)
	var called sync.WaitGroup
	called.Add(2)
	src.OnEnded(func() {
		called.Done()
		panic("callback")
	})
	other := mock.NewScheduled(ctx, "other", 1)
	other.OnEnded(called.Done)
	for _, s := range []*mock.Scheduled{src, other} {
		assert.NoError(t, ctx.Connect(ctx.Destination(), s, 0, 0))
		assert.NoError(t, s.Start(0))
		assert.NoError(t, s.Stop(0.05))
	}
	render(t, ctx)
	assert.NoError(t, ctx.Close())
	called.Wait()
}

func TestCompleteCallbackPanic(t *testing.T) {
	ctx := newOffline(t, 10*time.Millisecond, 1)
	called := make(chan struct{})
	require.NoError(t, ctx.SetOfflineRenderCompleteCallback(func() {
		close(called)
		panic("complete")
	}))
	rendered := render(t, ctx)
	<-called
	assert.Len(t, rendered[0], 128)
	assert.NoError(t, ctx.Close())
	<-ctx.Done()
}

func TestCloseFromCallback(t *testing.T) {
	t.Run("offline complete", func(t *testing.T) {
		ctx := newOffline(t, 10*time.Millisecond, 1)
		closed := make(chan error, 1)
		require.NoError(t, ctx.SetOfflineRenderCompleteCallback(func() {
			closed <- ctx.Close()
		}))
		require.NoError(t, ctx.StartOfflineRendering())
		select {
		case err := <-closed:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("close from complete callback blocked")
		}
		assert.NoError(t, ctx.Wait())
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Connect(ctx.Destination(), mock.NewSource(ctx, "late", 1, 1), 0, 0), phonograph.ErrClosed)
	})
	t.Run("ended", func(t *testing.T) {
		ctx := newOffline(t, 100*time.Millisecond, 1)
		src := mock.NewScheduled(ctx, "scheduled", 1)
		closed := make(chan error, 1)
		src.OnEnded(func() {
			closed <- ctx.Close()
		})
		require.NoError(t, ctx.Connect(ctx.Destination(), src, 0, 0))
		require.NoError(t, src.Start(0))
		require.NoError(t, src.Stop(0.05))
		require.NoError(t, ctx.StartOfflineRendering())
		select {
		case err := <-closed:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("close from ended callback blocked")
		}
		<-ctx.Done()
		assert.NoError(t, ctx.Close())
	})
}
