//go:build !headless

// Package oto plays realtime contexts with oto. Build with headless tag
// to replace the player with a clock that renders into nowhere.
package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/device"
	"github.com/dudk/phonograph/internal/errs"
)

// bufferQuanta is the player buffer length in quanta.
const bufferQuanta = 4

// Device plays realtime context with oto player. Player goroutine
// renders the context.
type Device struct {
	otoCtx *oto.Context
	player *oto.Player
}

var _ device.Device = (*Device)(nil)

// Open creates oto context for context config. Oto supports only one
// context per process.
func Open(ctx *phonograph.Context) (*Device, error) {
	if ctx.Mode() != phonograph.Realtime {
		return nil, fmt.Errorf("oto: %v context: %w", ctx.Mode(), phonograph.ErrInvalidState)
	}
	cfg := ctx.Config()
	quantum := time.Duration(float64(ctx.QuantumSize()) / float64(cfg.SampleRate) * float64(time.Second))
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferQuanta * quantum,
	})
	if err != nil {
		return nil, fmt.Errorf("oto: %w", err)
	}
	<-ready
	return &Device{
		otoCtx: otoCtx,
		player: otoCtx.NewPlayer(device.NewRenderer(ctx)),
	}, nil
}

// Start starts playback.
func (d *Device) Start() error {
	d.player.Play()
	return d.player.Err()
}

// Close stops the player and suspends oto context.
func (d *Device) Close() error {
	var e errs.List
	e.Add(d.player.Close())
	e.Add(d.otoCtx.Suspend())
	return e.Ret()
}
