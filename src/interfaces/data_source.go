package interfaces

import (
	"context"
	"sync"

	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource produces trade ticks for the registry's symbols.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if ticks come from a real exchange feed
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// State returns the current connection state
	State() models.FeedState

	// -----------------------------------------------------------------------------

	// Start begins producing ticks
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel to push ticks to
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- models.MTradeTick, wg *sync.WaitGroup) error
}
