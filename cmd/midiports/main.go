// Command midiports lists the MIDI input and output ports visible to the
// system, for picking names to put in bloopgo's config.
package main

import (
	"fmt"
	"os"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	defer gomidi.CloseDriver()

	ins := gomidi.GetInPorts()
	outs := gomidi.GetOutPorts()

	if len(ins) == 0 && len(outs) == 0 {
		fmt.Fprintln(os.Stderr, "no MIDI ports found")
		os.Exit(1)
	}

	fmt.Println("Input ports:")
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}

	fmt.Println("Output ports:")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}
