package models

// -----------------------------------------------------------------------------
// Viewer commands
// -----------------------------------------------------------------------------

// MViewerCommand is the only inbound message a viewer sends.
type MViewerCommand struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

const ActionSubscribe = "subscribe"
