package portaudio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/device"
	"github.com/dudk/phonograph/internal/errs"
)

// ErrUnknownDevice is returned when device index doesn't match any
// output device.
var ErrUnknownDevice = errors.New("unknown output device")

type (
	// Device plays realtime context with portaudio stream. Stream
	// callback renders the context.
	Device struct {
		renderer *device.Renderer
		stream   *portaudio.Stream
		info     Info
	}

	// Info describes an output device.
	Info struct {
		Index             int
		Name              string
		HostAPI           string
		MaxOutputChannels int
		DefaultSampleRate float64
		Default           bool
	}
)

var _ device.Device = (*Device)(nil)

// Open initializes portaudio and opens output stream for context
// config. Stream buffer is one quantum long.
func Open(ctx *phonograph.Context) (*Device, error) {
	if ctx.Mode() != phonograph.Realtime {
		return nil, fmt.Errorf("portaudio: %v context: %w", ctx.Mode(), phonograph.ErrInvalidState)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	cfg := ctx.Config()
	info, err := outputDevice(cfg.DeviceIndex)
	if err != nil {
		return nil, terminate(err)
	}
	if cfg.Channels > info.MaxOutputChannels {
		return nil, terminate(fmt.Errorf("portaudio: %s supports %d channels: %w", info.Name, info.MaxOutputChannels, phonograph.ErrChannelMismatch))
	}

	d := &Device{
		renderer: device.NewRenderer(ctx),
		info:     newInfo(info, cfg.DeviceIndex),
	}
	params := portaudio.LowLatencyParameters(nil, info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = ctx.QuantumSize()
	d.stream, err = portaudio.OpenStream(params, d.process)
	if err != nil {
		return nil, terminate(fmt.Errorf("portaudio: %w", err))
	}
	return d, nil
}

// Info returns description of the device stream was opened for.
func (d *Device) Info() Info {
	return d.info
}

// Start starts the stream.
func (d *Device) Start() error {
	return d.stream.Start()
}

// Close stops stream and terminates portaudio.
func (d *Device) Close() error {
	var e errs.List
	e.Add(d.stream.Stop())
	e.Add(d.stream.Close())
	e.Add(portaudio.Terminate())
	return e.Ret()
}

// process is the stream callback.
func (d *Device) process(out [][]float32) {
	d.renderer.ReadNonInterleaved(out)
}

// Devices returns available output devices.
func Devices() ([]Info, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, terminate(fmt.Errorf("portaudio: %w", err))
	}
	def, _ := portaudio.DefaultOutputDevice()
	infos := make([]Info, 0, len(devices))
	for i, d := range devices {
		if d.MaxOutputChannels == 0 {
			continue
		}
		info := newInfo(d, i)
		info.Default = def != nil && d.Name == def.Name
		infos = append(infos, info)
	}
	return infos, portaudio.Terminate()
}

func outputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index == phonograph.DefaultDevice {
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("portaudio: %w", err)
		}
		return info, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	if index < 0 || index >= len(devices) || devices[index].MaxOutputChannels == 0 {
		return nil, fmt.Errorf("portaudio: device %d: %w", index, ErrUnknownDevice)
	}
	return devices[index], nil
}

// newInfo describes device listed at index. Default device has
// DefaultDevice index.
func newInfo(d *portaudio.DeviceInfo, index int) Info {
	info := Info{
		Index:             index,
		Name:              d.Name,
		MaxOutputChannels: d.MaxOutputChannels,
		DefaultSampleRate: d.DefaultSampleRate,
	}
	if d.HostApi != nil {
		info.HostAPI = d.HostApi.Name
	}
	return info
}

// terminate releases portaudio after failed initialization.
func terminate(err error) error {
	e := errs.List{err}
	e.Add(portaudio.Terminate())
	return e.Ret()
}
