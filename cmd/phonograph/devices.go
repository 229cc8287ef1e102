package main

import (
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/dudk/phonograph/device/portaudio"
)

// devicesCommand lists portaudio output devices.
type devicesCommand struct{}

func (cmd *devicesCommand) Name() string {
	return "devices"
}

func (cmd *devicesCommand) Help() string {
	return "list portaudio output devices"
}

func (cmd *devicesCommand) Register(*flag.FlagSet) {}

func (cmd *devicesCommand) Run() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tHOST API\tCHANNELS\tSAMPLE RATE\t")
	for _, d := range devices {
		name := d.Name
		if d.Default {
			name += " *"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.0f\t\n", d.Index, name, d.HostAPI, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return w.Flush()
}
