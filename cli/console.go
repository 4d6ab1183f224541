// Package cli is the interactive console: a readline-driven command
// handler that lets a performer drive the scheduler from a terminal
// without a MIDI control surface attached, plus a batch mode for piped
// or scripted input.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"bloopgo/looper"
)

// Handler parses and executes console command lines against a scheduler.
type Handler struct {
	sched *looper.Scheduler
	uiCh  <-chan looper.UIState
	out   io.Writer
}

// New creates a command handler bound to sched, writing output to out. It
// subscribes its own dedicated UIState channel from sched so its status/
// export commands never race another consumer (the TUI, a control-surface
// LED loop) for a shared snapshot.
func New(sched *looper.Scheduler, out io.Writer) *Handler {
	return &Handler{sched: sched, uiCh: sched.Subscribe(), out: out}
}

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// ProcessCommand parses and executes a single command line.
func (h *Handler) ProcessCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return h.handleStatus()
	}

	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "do":
		return h.handleIndexed(parts, looper.DoKey)
	case "rec":
		return h.handleIndexed(parts, looper.StartRecording)
	case "play":
		return h.handleIndexed(parts, looper.StartPlaying)
	case "listen":
		return h.handleIndexed(parts, looper.ToggleListening)
	case "toggle", "mute":
		return h.handleIndexed(parts, looper.TogglePlayback)
	case "cancel":
		return h.handleIndexed(parts, looper.CancelPlaying)
	case "clear":
		h.sched.Submit(looper.Command{Kind: looper.ClearAll})
		fmt.Fprintln(h.out, "cleared all bloops")
		return nil
	case "output":
		return h.handleOutput(parts)
	case "status":
		return h.handleStatus()
	case "export":
		return h.handleExport()
	case "help":
		return h.handleHelp()
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

func (h *Handler) handleIndexed(parts []string, kind looper.CommandKind) error {
	if len(parts) != 2 {
		return fmt.Errorf("usage: %s <bloop>", parts[0])
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid bloop index: %s", parts[1])
	}
	h.sched.Submit(looper.Command{Kind: kind, BloopIndex: i})
	fmt.Fprintf(h.out, "ok\n")
	return nil
}

func (h *Handler) handleOutput(parts []string) error {
	if len(parts) < 2 {
		return fmt.Errorf("usage: output <port name>")
	}
	name := strings.Join(parts[1:], " ")
	h.sched.Submit(looper.Command{Kind: looper.SetOutputPort, OutputPortName: name})
	fmt.Fprintf(h.out, "output port change to %q logged; the output sink is unchanged\n", name)
	return nil
}

func (h *Handler) handleStatus() error {
	state := h.snapshot()

	if state.DurationSet {
		fmt.Fprintf(h.out, "tempo: %s/loop\n", state.Duration)
	} else {
		fmt.Fprintln(h.out, "tempo: not established")
	}
	for i, b := range state.Bloops {
		fmt.Fprintf(h.out, "  bloop %d: listening=%v armed=%v recording=%v playing=%v active=%v\n",
			i, b.Listening, b.WaitingToRecord, b.Recording, b.PlayingBack, b.PlaybackActive)
	}
	return nil
}

// handleExport renders the current snapshot as JSON (looper.ExportJSON),
// for an external process such as a lighting rig or OSC bridge.
func (h *Handler) handleExport() error {
	doc, err := looper.ExportJSON(h.snapshot())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintln(h.out, doc)
	return nil
}

// snapshot asks the scheduler to publish a fresh UIState and waits for it
// on this handler's own subscription channel.
func (h *Handler) snapshot() looper.UIState {
	h.sched.Submit(looper.Command{Kind: looper.RefreshUI})
	return <-h.uiCh
}

func (h *Handler) handleHelp() error {
	fmt.Fprint(h.out, `Available commands:
  rec <bloop>     Arm a bloop to start recording at the next loop boundary
  play <bloop>    Close an open-ended recording and start it looping
  do <bloop>      Record, stop-recording-and-play, or toggle play (context dependent)
  listen <bloop>  Toggle the pass-through gate for a bloop
  toggle <bloop>  Mute/unmute an in-progress playback
  cancel <bloop>  Cancel all playback on a bloop
  clear           Cancel every bloop and reset the tempo anchor
  output <port>   Log a request for a different MIDI port (the sink is not changed)
  status          Show current tempo and per-bloop state
  export          Print the current snapshot as JSON
  help            Show this help message
  quit            Exit the console (the scheduler keeps running)
  <enter>         Same as 'status'
`)
	return nil
}

// ReadLoop drives the console from an interactive terminal with line
// editing and history via readline, until the user types quit/exit or
// sends EOF.
func (h *Handler) ReadLoop() error {
	rl, err := readline.New("bloopgo> ")
	if err != nil {
		return fmt.Errorf("create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return nil
		}
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			return nil
		}
		if err := h.ProcessCommand(line); err != nil {
			fmt.Fprintf(h.out, "error: %v\n", err)
		}
	}
}

// ProcessBatch reads commands line by line from r (e.g. piped stdin or a
// script file), for non-interactive use. Returns hadErrors so the caller
// can choose an exit code.
func (h *Handler) ProcessBatch(r io.Reader) (hadErrors bool) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			return hadErrors
		}
		fmt.Fprintln(h.out, ">", line)
		if err := h.ProcessCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			hadErrors = true
		}
	}
	return hadErrors
}
