package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"bloopgo/looper"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Launchpad help widget
	Solid rune // ■ active/has function
	Empty rune // □ inactive/no function

	// Bloop states, one glyph per BloopUIState combination
	BloopIdle          rune // · nothing armed, recorded, or playing
	BloopWaitingRecord rune // ◇ armed, recording hasn't started yet
	BloopRecording     rune // ● actively recording
	BloopPlaying       rune // ▶ looping and audible
	BloopMuted         rune // ▷ looping but playback silenced
	BloopNotListening  rune // ╳ pass-through gate closed
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Solid: '■',
			Empty: '□',

			BloopIdle:          '·',
			BloopWaitingRecord: '◇',
			BloopRecording:     '●',
			BloopPlaying:       '▶',
			BloopMuted:         '▷',
			BloopNotListening:  '╳',
		},
	}
}

// ForBloop picks the single glyph that best summarizes a bloop's state,
// in priority order: recording beats waiting-to-record beats playing
// beats not-listening beats idle.
func (s Symbols) ForBloop(b looper.BloopUIState) rune {
	switch {
	case b.Recording:
		return s.BloopRecording
	case b.WaitingToRecord:
		return s.BloopWaitingRecord
	case b.PlayingBack && b.PlaybackActive:
		return s.BloopPlaying
	case b.PlayingBack && !b.PlaybackActive:
		return s.BloopMuted
	case !b.Listening:
		return s.BloopNotListening
	default:
		return s.BloopIdle
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG      = 0.0  // deep purple
	RoleSurface = 0.1  // dark purple
	RoleMuted   = 0.2  // purple-magenta
	RoleFG      = 0.4  // pink-purple (readable)
	RoleAccent  = 0.5  // vivid magenta
	RoleCursor  = 0.6  // rose pink
	RoleActive  = 0.7  // soft red
	RoleWarning = 0.8  // orange
	RoleSuccess = 1.0  // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Cursor() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleCursor))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

// RGB returns raw RGB for any normalized value (for Launchpad)
func (t *Theme) RGB(norm float64) RGB {
	return t.Palette.Lookup(norm)
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
