package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/asset"
	"github.com/dudk/phonograph/device"
	"github.com/dudk/phonograph/device/oto"
	"github.com/dudk/phonograph/device/portaudio"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/node"
)

// progressInterval is how often playback progress is logged.
const progressInterval = time.Second

// playCommand plays graph on output device.
type playCommand struct {
	graph    graphFlags
	backend  string
	device   int
	duration time.Duration
	record   string
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "play graph on output device"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.graph.register(fs)
	fs.StringVar(&cmd.backend, "backend", "oto", "output backend: oto or portaudio")
	fs.IntVar(&cmd.device, "device", phonograph.DefaultDevice, "portaudio output device index")
	fs.DurationVar(&cmd.duration, "duration", 0, "playback duration, 0 plays until interrupted")
	fs.StringVar(&cmd.record, "record", "", "record played signal into wav or mp3 file")
}

func (cmd *playCommand) Run() error {
	logger := log.GetLogger()
	ctx, err := phonograph.NewRealtimeContext(
		cmd.graph.deviceConfig(cmd.device),
		phonograph.WithLogger(logger),
		phonograph.WithName("play"),
	)
	if err != nil {
		return err
	}
	defer ctx.Close()

	out, err := cmd.graph.build(ctx, asset.NewCache())
	if err != nil {
		return err
	}
	var rec *node.Recorder
	if cmd.record != "" {
		if rec, err = cmd.recorder(ctx, out); err != nil {
			return err
		}
	}

	d, err := cmd.open(ctx)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd.duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, cmd.duration)
		defer cancel()
	}

	if err := d.Start(); err != nil {
		d.Close()
		return err
	}
	logger.WithField("backend", cmd.backend).Info("playing")
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logger.WithFields(logrus.Fields{
					"time":   fmt.Sprintf("%.1fs", ctx.CurrentTime()),
					"silent": ctx.SilentQuanta(),
				}).Info("progress")
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		return d.Close()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if rec == nil {
		return nil
	}
	rec.StopRecording()
	bus, err := rec.Recorded()
	if err != nil {
		return err
	}
	if dropped := rec.Dropped(); dropped > 0 {
		logger.WithField("frames", dropped).Warn("recording truncated")
	}
	return asset.Save(cmd.record, bus, ctx.SampleRate())
}

// recorder inserts recorder between destination and out. It keeps up
// to duration of signal, or a minute when duration isn't set.
func (cmd *playCommand) recorder(ctx *phonograph.Context, out phonograph.Node) (*node.Recorder, error) {
	d := cmd.duration
	if d <= 0 {
		d = time.Minute
	}
	capacity := int(math.Ceil(d.Seconds() * float64(ctx.SampleRate())))
	rec, err := node.NewRecorder(ctx, ctx.Config().Channels, capacity)
	if err != nil {
		return nil, err
	}
	if err := ctx.Disconnect(ctx.Destination(), out, 0, 0); err != nil {
		return nil, err
	}
	if err := ctx.Connect(rec, out, 0, 0); err != nil {
		return nil, err
	}
	if err := ctx.Connect(ctx.Destination(), rec, 0, 0); err != nil {
		return nil, err
	}
	rec.StartRecording()
	return rec, nil
}

func (cmd *playCommand) open(ctx *phonograph.Context) (device.Device, error) {
	switch cmd.backend {
	case "oto":
		return oto.Open(ctx)
	case "portaudio":
		return portaudio.Open(ctx)
	}
	return nil, fmt.Errorf("unknown backend %q", cmd.backend)
}
