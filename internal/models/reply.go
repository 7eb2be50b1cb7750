package models

// Button is one inline keyboard button: a label shown to the user and the
// opaque action identifier sent back when pressed.
type Button struct {
	Label  string
	Action string
}

// Reply is a rendering instruction returned by the orchestrator. The chat
// transport decides how to deliver it; the orchestrator never touches the
// wire format.
type Reply struct {
	Text      string
	Keyboard  [][]Button
	HTML      bool
	NoPreview bool
}
