//go:build headless

package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/device"
)

// Device renders realtime context at its sample rate pace and drops the
// signal.
type Device struct {
	renderer *device.Renderer
	period   time.Duration
	buf      []float32

	once sync.Once
	stop chan struct{}
	wg   sync.WaitGroup
}

var _ device.Device = (*Device)(nil)

// Open creates headless device for context.
func Open(ctx *phonograph.Context) (*Device, error) {
	if ctx.Mode() != phonograph.Realtime {
		return nil, fmt.Errorf("oto: %v context: %w", ctx.Mode(), phonograph.ErrInvalidState)
	}
	r := device.NewRenderer(ctx)
	return &Device{
		renderer: r,
		period:   time.Duration(float64(ctx.QuantumSize()) / float64(ctx.SampleRate()) * float64(time.Second)),
		buf:      make([]float32, ctx.QuantumSize()*r.NumChannels()),
		stop:     make(chan struct{}),
	}, nil
}

// Start starts rendering goroutine.
func (d *Device) Start() error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.period)
		defer ticker.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-ticker.C:
				d.renderer.ReadInterleaved(d.buf)
			}
		}
	}()
	return nil
}

// Close stops rendering goroutine.
func (d *Device) Close() error {
	d.once.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
	return nil
}
