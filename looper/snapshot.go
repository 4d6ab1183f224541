package looper

import "time"

// UIState is the full, read-only snapshot published to the TUI, the
// console, and the JSON export on each RefreshUI command.
type UIState struct {
	Epoch        time.Time
	EpochSet     bool
	Duration     time.Duration
	DurationSet  bool
	Bloops       []BloopUIState
}
