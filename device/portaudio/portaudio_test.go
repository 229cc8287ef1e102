//go:build portaudio

package portaudio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/device/portaudio"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/node"
)

func TestDevices(t *testing.T) {
	devices, err := portaudio.Devices()
	assert.NoError(t, err)
	assert.NotEmpty(t, devices)
}

func TestPlay(t *testing.T) {
	ctx, err := phonograph.NewRealtimeContext(
		phonograph.DeviceConfig{DeviceIndex: phonograph.DefaultDevice, SampleRate: 44100, Channels: 2},
		phonograph.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	defer ctx.Close()

	osc := node.NewOscillator(ctx, node.Sine)
	osc.Amplitude.SetValue(0.1)
	assert.NoError(t, ctx.Connect(ctx.Destination(), osc, 0, 0))
	assert.NoError(t, osc.Start(0))

	d, err := portaudio.Open(ctx)
	require.NoError(t, err)
	assert.NoError(t, d.Start())
	time.Sleep(200 * time.Millisecond)
	assert.NoError(t, d.Close())
	assert.Greater(t, ctx.CurrentFrame(), uint64(0))
}

func TestOpenUnknown(t *testing.T) {
	ctx, err := phonograph.NewRealtimeContext(
		phonograph.DeviceConfig{DeviceIndex: 1 << 16, SampleRate: 44100, Channels: 2},
		phonograph.WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	defer ctx.Close()

	_, err = portaudio.Open(ctx)
	assert.ErrorIs(t, err, portaudio.ErrUnknownDevice)
}
