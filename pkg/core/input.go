// pkg/core/input.go
package core

// Button is an input action exposed by the environment.
type Button int

const (
	ButtonMoveRight Button = iota
	ButtonMoveLeft
	ButtonMoveBackward
	ButtonMoveForward
	ButtonTurnLeft
	ButtonTurnRight
	ButtonLookUpDownDelta
	ButtonTurnLeftRightDelta
	ButtonMoveLeftRightDelta
	ButtonUse
)

var buttonNames = [...]string{
	ButtonMoveRight:          "MOVE_RIGHT",
	ButtonMoveLeft:           "MOVE_LEFT",
	ButtonMoveBackward:       "MOVE_BACKWARD",
	ButtonMoveForward:        "MOVE_FORWARD",
	ButtonTurnLeft:           "TURN_LEFT",
	ButtonTurnRight:          "TURN_RIGHT",
	ButtonLookUpDownDelta:    "LOOK_UP_DOWN_DELTA",
	ButtonTurnLeftRightDelta: "TURN_LEFT_RIGHT_DELTA",
	ButtonMoveLeftRightDelta: "MOVE_LEFT_RIGHT_DELTA",
	ButtonUse:                "USE",
}

func (b Button) String() string {
	if b >= 0 && int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return "UNKNOWN_BUTTON"
}

// IsDelta reports whether the button carries an analog delta instead of a pressed state.
func (b Button) IsDelta() bool {
	switch b {
	case ButtonLookUpDownDelta, ButtonTurnLeftRightDelta, ButtonMoveLeftRightDelta:
		return true
	}
	return false
}

// ButtonPressed is the value a binary button reports while held.
const ButtonPressed = 1.0

// CaptureButtons is the input surface used by capture sessions.
var CaptureButtons = []Button{
	ButtonMoveRight,
	ButtonMoveLeft,
	ButtonMoveBackward,
	ButtonMoveForward,
	ButtonTurnLeft,
	ButtonTurnRight,
	ButtonLookUpDownDelta,
	ButtonTurnLeftRightDelta,
	ButtonMoveLeftRightDelta,
	ButtonUse,
}

// Mode selects who drives the environment clock.
type Mode int

const (
	ModePlayer Mode = iota
	ModeSpectator
	ModeAsyncPlayer
	ModeAsyncSpectator
)

func (m Mode) String() string {
	switch m {
	case ModePlayer:
		return "PLAYER"
	case ModeSpectator:
		return "SPECTATOR"
	case ModeAsyncPlayer:
		return "ASYNC_PLAYER"
	case ModeAsyncSpectator:
		return "ASYNC_SPECTATOR"
	}
	return "UNKNOWN_MODE"
}

// Async reports whether the environment advances in real time regardless of the caller.
func (m Mode) Async() bool {
	return m == ModeAsyncPlayer || m == ModeAsyncSpectator
}

// Spectator reports whether a human supplies the input.
func (m Mode) Spectator() bool {
	return m == ModeSpectator || m == ModeAsyncSpectator
}
