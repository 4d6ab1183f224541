package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bloopgo/config"
	"bloopgo/looper"
	"bloopgo/midi"
	"bloopgo/theme"
)

// shiftedDigits maps the shifted glyph of each number-row key (as
// bubbletea reports it) back to its bloop index, so "!" toggles
// listening on bloop 0 the same way "1" triggers its DoKey action.
var shiftedDigits = map[string]int{
	"!": 0, "@": 1, "#": 2, "$": 3, "%": 4, "^": 5, "&": 6, "*": 7, "(": 8,
}

// Model is the bubbletea program driving the bloop status display.
type Model struct {
	Scheduler *looper.Scheduler
	DeviceMgr *midi.DeviceManager
	Config    *config.Config
	Theme     *theme.Theme

	uiCh       <-chan looper.UIState
	state      looper.UIState
	statusMsg  string
	controller midi.Controller
	quitting   bool
}

// UIStateMsg carries a fresh snapshot from the scheduler into Update.
type UIStateMsg looper.UIState

// RescanResultMsg reports the outcome of a background device rescan.
type RescanResultMsg struct {
	controller midi.Controller
	err        error
}

// NewModel subscribes to the scheduler's own dedicated UIState channel —
// every long-lived consumer (this model, a control-surface LED feedback
// loop, the console) gets its own subscription, never a shared one, so
// none of them can steal a snapshot meant for another.
func NewModel(sched *looper.Scheduler, deviceMgr *midi.DeviceManager, cfg *config.Config, th *theme.Theme) Model {
	return Model{
		Scheduler:  sched,
		DeviceMgr:  deviceMgr,
		Config:     cfg,
		Theme:      th,
		uiCh:       sched.Subscribe(),
		controller: deviceMgr.GetController(),
	}
}

// ListenForUIState waits for the next snapshot on this model's own
// subscription channel.
func ListenForUIState(ch <-chan looper.UIState) tea.Cmd {
	return func() tea.Msg {
		state := <-ch
		return UIStateMsg(state)
	}
}

// RescanDevices attempts to (re)connect a control surface in the background.
func RescanDevices(deviceMgr *midi.DeviceManager, cfg *config.Config) tea.Cmd {
	return func() tea.Msg {
		err := deviceMgr.Connect(cfg)
		if err != nil {
			return RescanResultMsg{err: err}
		}
		return RescanResultMsg{controller: deviceMgr.GetController()}
	}
}

// tickMsg fires on a UI-friendly cadence to ask the scheduler for a fresh
// snapshot; RefreshUI is cheap so this is safe to run often.
type tickMsg struct{}

func tickRefresh() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(ListenForUIState(m.uiCh), tickRefresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "esc":
			m.Scheduler.Submit(looper.Command{Kind: looper.ClearAll})

		case "r":
			m.statusMsg = "Scanning..."
			return m, RescanDevices(m.DeviceMgr, m.Config)

		default:
			if i, ok := shiftedDigits[key]; ok {
				m.Scheduler.Submit(looper.Command{Kind: looper.ToggleListening, BloopIndex: i})
			} else if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				i := int(key[0] - '1')
				m.Scheduler.Submit(looper.Command{Kind: looper.DoKey, BloopIndex: i})
			}
		}

	case UIStateMsg:
		m.state = looper.UIState(msg)
		return m, ListenForUIState(m.uiCh)

	case tickMsg:
		m.Scheduler.Submit(looper.Command{Kind: looper.RefreshUI})
		return m, tickRefresh()

	case RescanResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("no device: %v", msg.err)
			m.controller = nil
		} else if msg.controller != nil {
			m.statusMsg = fmt.Sprintf("connected: %s", msg.controller.ID())
			m.controller = msg.controller
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	recordStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())
	playStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())

	tempo := "no tempo yet"
	if m.state.DurationSet {
		tempo = fmt.Sprintf("%.2fs/loop", m.state.Duration.Seconds())
	}

	deviceStatus := "[no ctrl - r:scan]"
	if m.controller != nil {
		deviceStatus = fmt.Sprintf("[%s]", m.controller.ID())
	}

	header := headerStyle.Render(fmt.Sprintf("bloopgo  %s  %s", tempo, deviceStatus))

	var rows []string
	for i, b := range m.state.Bloops {
		glyph := string(m.Theme.Symbols.ForBloop(b))
		style := dimStyle
		switch {
		case b.Recording:
			style = recordStyle
		case b.PlayingBack:
			style = playStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("  %d %s", i+1, glyph)))
	}

	help := dimStyle.Render("1-9:do-key  !@#...:toggle listen  esc:clear all  r:scan  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(strings.Join(rows, "\n"))
	out.WriteString("\n\n")
	out.WriteString(help)
	if m.statusMsg != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.statusMsg))
	}

	return out.String()
}
