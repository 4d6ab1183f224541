package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"bloopgo/cli"
	"bloopgo/config"
	"bloopgo/control"
	"bloopgo/debug"
	"bloopgo/looper"
	"bloopgo/midi"
	"bloopgo/theme"
	"bloopgo/tui"
)

func main() {
	useTUI := flag.Bool("tui", false, "launch the bubbletea status display instead of the console")
	scriptFile := flag.String("script", "", "execute console commands from a file, then keep running")
	outputName := flag.String("output", "", "MIDI output port name (overrides the saved config)")
	flag.Parse()

	if err := debug.Enable(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: debug log unavailable: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	portName := cfg.Output.PortName
	if *outputName != "" {
		portName = *outputName
	}

	sink, closeSink, err := openOutput(portName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening MIDI output: %v\n", err)
		os.Exit(1)
	}
	defer closeSink()

	outChannels := make([]midi.Channel, 0, len(cfg.Output.BloopChannels))
	for _, c := range cfg.Output.BloopChannels {
		outChannels = append(outChannels, midi.NewChannel(uint8(c)))
	}

	sched := looper.NewScheduler(cfg.Looper.BloopCount, outChannels, sink, cfg.Looper.Lookback())
	go sched.Run()

	deviceMgr := midi.NewDeviceManager()
	if err := deviceMgr.Connect(cfg); err != nil {
		debug.Log("main", "no control surface connected: %v", err)
	}
	autoConnectNoteInput(deviceMgr, cfg)

	palette := theme.MustLoadGPL("palettes/plasma.gpl")
	th := theme.New(palette)

	ctrl := deviceMgr.GetController()
	noteIn := deviceMgr.GetNoteInput()
	var bindings *control.Bindings
	if ctrl != nil || noteIn != nil {
		bindings = control.New(sched, ctrl, noteIn, th)
		if ctrl != nil {
			fmt.Printf("connected control surface: %s\n", ctrl.ID())
		}
		if noteIn != nil {
			fmt.Printf("connected note input: %s\n", noteIn.ID())
		}
	}

	cleanup := func() {
		if bindings != nil {
			bindings.Close()
		}
		sched.Stop()
		deviceMgr.Disconnect()
		deviceMgr.DisconnectNoteInput()
		if err := cfg.Save(); err != nil {
			debug.Log("main", "config save failed: %v", err)
		}
		debug.Disable()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cleanup()
		os.Exit(0)
	}()

	if *useTUI {
		runTUI(sched, deviceMgr, cfg, th)
		cleanup()
		return
	}

	runConsole(sched, *scriptFile)
	cleanup()
}

// openOutput resolves portName to a live output port (or the first
// available one if portName is empty) and wraps it as a looper.OutputSink.
func openOutput(portName string) (sink looper.OutputSink, closeFn func(), err error) {
	outPorts := gomidi.GetOutPorts()
	if len(outPorts) == 0 {
		return nil, nil, fmt.Errorf("no MIDI output ports found")
	}

	out := outPorts[0]
	if portName != "" {
		found := false
		for _, p := range outPorts {
			if strings.EqualFold(p.String(), portName) {
				out = p
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(os.Stderr, "output port %q not found, using %q\n", portName, out.String())
		}
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %q: %w", out.String(), err)
	}

	fmt.Printf("MIDI output: %s\n", out.String())
	return func(msg midi.Message) error {
			return send(msg)
		}, func() {
			gomidi.CloseDriver()
		}, nil
}

// autoConnectNoteInput connects a MIDI keyboard as note input so performers
// can record real notes into a bloop, independent of whatever control
// surface (if any) is handling pads/LEDs. It first tries a configured
// keyboard-type controller with autoConnect set, then falls back to the
// first input port not already claimed by the control surface.
func autoConnectNoteInput(dm *midi.DeviceManager, cfg *config.Config) {
	ctrlName := ""
	if ctrl := dm.GetController(); ctrl != nil {
		ctrlName = ctrl.ID()
	}

	for _, c := range cfg.Controllers {
		if c.Type != config.ControllerKeyboard || !c.AutoConnect {
			continue
		}
		if err := dm.ConnectNoteInput(c.PortName); err == nil {
			return
		}
	}

	inNames, _, err := dm.ScanPorts()
	if err != nil {
		debug.Log("main", "note input scan failed: %v", err)
		return
	}
	for _, name := range inNames {
		if name == ctrlName {
			continue
		}
		if err := dm.ConnectNoteInput(name); err == nil {
			return
		}
	}
}

func runTUI(sched *looper.Scheduler, deviceMgr *midi.DeviceManager, cfg *config.Config, th *theme.Theme) {
	m := tui.NewModel(sched, deviceMgr, cfg, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
	}
}

func runConsole(sched *looper.Scheduler, scriptFile string) {
	handler := cli.New(sched, os.Stdout)

	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening script: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()
		handler.ProcessBatch(f)
		fmt.Println("script complete. bloops keep running; Ctrl+C to exit.")
		select {}
	}

	fmt.Println("bloopgo console ready. Type 'help' for commands, 'quit' to exit to background.")

	if cli.IsTerminal() {
		if err := handler.ReadLoop(); err != nil {
			fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		}
		fmt.Println("console closed. bloops keep running; Ctrl+C to exit.")
		select {}
	}

	handler.ProcessBatch(os.Stdin)
	fmt.Println("input closed. bloops keep running; Ctrl+C to exit.")
	select {}
}
