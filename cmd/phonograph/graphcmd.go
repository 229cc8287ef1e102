package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/dudk/phonograph"
	"github.com/dudk/phonograph/asset"
	"github.com/dudk/phonograph/log"
)

// graphCommand renders graph offline and prints its traversal.
type graphCommand struct {
	graph    graphFlags
	duration time.Duration
	dump     bool
}

func (cmd *graphCommand) Name() string {
	return "graph"
}

func (cmd *graphCommand) Help() string {
	return "print graph state after offline render"
}

func (cmd *graphCommand) Register(fs *flag.FlagSet) {
	cmd.graph.register(fs)
	fs.DurationVar(&cmd.duration, "duration", 100*time.Millisecond, "rendered duration")
	fs.BoolVar(&cmd.dump, "dump", false, "dump traversal reports")
}

func (cmd *graphCommand) Run() error {
	ctx, err := phonograph.NewOfflineContext(
		cmd.graph.deviceConfig(phonograph.DefaultDevice),
		cmd.duration,
		phonograph.WithLogger(log.GetLogger()),
		phonograph.WithName("graph"),
	)
	if err != nil {
		return err
	}
	defer ctx.Close()

	if _, err := cmd.graph.build(ctx, asset.NewCache()); err != nil {
		return err
	}
	if err := ctx.StartOfflineRendering(); err != nil {
		return err
	}
	if err := ctx.Wait(); err != nil {
		return err
	}
	if err := ctx.WriteGraph(stdout); err != nil {
		return err
	}
	if cmd.dump {
		fmt.Fprint(stdout, spew.Sdump(ctx.Traverse()))
	}
	return nil
}
