package interfaces

import "context"

// -----------------------------------------------------------------------------
// IDataExchanger is the viewer-facing surface (HTTP + WebSocket).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Start serves until Stop is called
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully, closing every viewer
	Stop(ctx context.Context) error
}
