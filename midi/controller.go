package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

// PadEvent is sent when a pad/button is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// NoteEvent is sent when a note is played on a keyboard
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent   // For grid controllers (Launchpad)
	NoteEvents() <-chan NoteEvent // For keyboards

	// Output to the controller
	SetLEDRGB(row, col int, rgb [3]uint8, channel uint8) error
	SetLEDBatch(updates []LEDUpdate) error

	// Lifecycle
	Close() error
}

// Launchpad color palette indices
const (
	ColorOff         uint8 = 0
	ColorRed         uint8 = 5
	ColorGreen       uint8 = 13
	ColorBrightGreen uint8 = 19
	ColorBlue        uint8 = 45
	ColorYellow      uint8 = 69
	ColorOrange      uint8 = 9
	ColorWhite       uint8 = 127
	ColorDim         uint8 = 1
)

// LEDUpdate is one pad's desired color, batched together so a control
// surface can send a whole grid refresh with fewer round trips.
type LEDUpdate struct {
	Row, Col int
	Color    [3]uint8
	Channel  uint8
}
