package synthetic

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/registry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(symbols ...string) *Source {
	return NewSource(registry.New(symbols), 10*time.Millisecond, 30_000,
		logger.NewLoggerWithWriter(io.Discard, "ERROR", "test")).WithRand(rand.New(rand.NewSource(7)))
}

func TestNextBoundaryAndIntraPeriodRanges(t *testing.T) {
	src := newTestSource("JOBY")
	base := decimal.RequireFromString("6.50")
	start := time.UnixMilli(1_700_000_010_000)

	first := src.next("JOBY", start)
	assert.GreaterOrEqual(t, first.Size, int64(1_000))
	assert.Less(t, first.Size, int64(11_000))
	assert.True(t, first.Price.Sub(base).Abs().LessThanOrEqual(decimal.NewFromInt(2)))

	prev := first.Price
	for i := 1; i < 15; i++ {
		tick := src.next("JOBY", start.Add(time.Duration(i)*time.Second))
		assert.GreaterOrEqual(t, tick.Size, int64(0))
		assert.Less(t, tick.Size, int64(500))
		assert.True(t, tick.Price.Sub(prev).Abs().LessThanOrEqual(decimal.NewFromInt(1)), "step %d", i)
		assert.Equal(t, start.UnixMilli()+int64(i)*1000, tick.Timestamp)
		prev = tick.Price
	}

	// 1_700_000_040_000 starts a new 30 s period.
	next := src.next("JOBY", time.UnixMilli(1_700_000_040_000))
	assert.GreaterOrEqual(t, next.Size, int64(1_000))
}

func TestNextClampsPrice(t *testing.T) {
	src := newTestSource("PENNY")
	src.prices["PENNY"] = decimal.RequireFromString("0.10")

	now := time.UnixMilli(0)
	for i := 0; i < 200; i++ {
		tick := src.next("PENNY", now.Add(time.Duration(i)*time.Second))
		require.True(t, tick.Price.GreaterThanOrEqual(minPrice))
		assert.Equal(t, int32(-2), tick.Price.Exponent())
	}
}

func TestStartEmitsForEverySymbol(t *testing.T) {
	src := newTestSource("JOBY", "ACHR", "VXX")
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.MTradeTick, 64)
	var wg sync.WaitGroup

	require.NoError(t, src.Start(ctx, out, &wg))
	assert.Equal(t, models.FeedSubscribed, src.State())

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case tick := <-out:
			seen[tick.Symbol] = true
			assert.True(t, tick.Price.IsPositive())
		case <-deadline:
			t.Fatalf("only saw %v", seen)
		}
	}

	cancel()
	wg.Wait()
	assert.Equal(t, models.FeedDisconnected, src.State())
	assert.False(t, src.IsRealTime())
	assert.Equal(t, SourceName, src.Name())
}
