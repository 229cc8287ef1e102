package main

import (
	"errors"
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/asset"
	"github.com/dudk/phonograph/log"
	"github.com/dudk/phonograph/metric"
)

// renderCommand renders graph offline into a file.
type renderCommand struct {
	graph    graphFlags
	out      string
	duration time.Duration
	metric   bool
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "render graph into wav or mp3 file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.graph.register(fs)
	fs.StringVar(&cmd.out, "out", "out.wav", "output file, .wav or .mp3")
	fs.DurationVar(&cmd.duration, "duration", 5*time.Second, "rendered duration")
	fs.BoolVar(&cmd.metric, "metric", false, "print node metrics")
}

func (cmd *renderCommand) Run() error {
	if cmd.out == "" {
		return errors.New("output file is not set")
	}
	logger := log.GetLogger()
	options := []phonograph.Option{phonograph.WithLogger(logger), phonograph.WithName("render")}
	if cmd.metric {
		options = append(options, phonograph.WithMetric())
	}
	ctx, err := phonograph.NewOfflineContext(cmd.graph.deviceConfig(phonograph.DefaultDevice), cmd.duration, options...)
	if err != nil {
		return err
	}
	defer ctx.Close()

	if _, err := cmd.graph.build(ctx, asset.NewCache()); err != nil {
		return err
	}
	start := time.Now()
	if err := ctx.StartOfflineRendering(); err != nil {
		return err
	}
	if err := ctx.Wait(); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"frames": ctx.CurrentFrame(),
		"took":   time.Since(start),
	}).Info("rendered")

	if err := asset.Save(cmd.out, ctx.Rendered(), ctx.SampleRate()); err != nil {
		return err
	}
	if cmd.metric {
		printMetrics(metric.GetAll())
	}
	return nil
}

func printMetrics(all map[string]map[string]string) {
	types := make([]string, 0, len(all))
	for t := range all {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		counters := all[t]
		names := make([]string, 0, len(counters))
		for name := range counters {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(stdout, t)
		for _, name := range names {
			fmt.Fprintf(stdout, "\t%s: %s\n", name, counters[name])
		}
	}
}
