package server

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"candle-stream/src/analysis"
	"candle-stream/src/logger"
	"candle-stream/src/metrics"
	"candle-stream/src/models"
	"candle-stream/src/registry"
	"candle-stream/src/subscription"
	"candle-stream/src/utils"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func newTestHub(t *testing.T) (*Hub, *utils.CandleHistory) {
	t.Helper()
	l := logger.NewLoggerWithWriter(io.Discard, "ERROR", "test")
	reg := registry.New([]string{"JOBY", "ACHR"})
	history := utils.NewCandleHistory(10, analysis.DefaultIntervalMs, l)
	hub := NewHub(
		analysis.NewCandleAggregator(reg, analysis.DefaultIntervalMs, l),
		subscription.NewDirectory[*Client](reg),
		history,
		l,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub, history
}

func fakeClient(id string, buffer int) *Client {
	return &Client{id: id, send: make(chan []byte, buffer)}
}

func trade(symbol string, ts int64, price string, size int64) models.MTradeTick {
	return models.MTradeTick{Symbol: symbol, Price: decimal.RequireFromString(price), Size: size, Timestamp: ts}
}

func receive(t *testing.T, c *Client) models.MCandleSnapshot {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var snap models.MCandleSnapshot
		require.NoError(t, json.Unmarshal(payload, &snap))
		return snap
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
	}
	return models.MCandleSnapshot{}
}

func TestHubFansOutBySymbol(t *testing.T) {
	hub, _ := newTestHub(t)
	joby := fakeClient("joby", 8)
	achr := fakeClient("achr", 8)
	require.True(t, hub.Register(joby))
	require.True(t, hub.Register(achr))
	require.True(t, hub.Subscribe(joby, "JOBY"))
	require.True(t, hub.Subscribe(achr, "ACHR"))

	hub.Ticks() <- trade("JOBY", 0, "6.50", 100)

	snap := receive(t, joby)
	assert.Equal(t, "JOBY", snap.Symbol)
	assert.Equal(t, 6.5, snap.Close)
	assert.True(t, snap.IsLive)
	assert.Empty(t, achr.send)
}

func TestHubPublishesFinalThenLive(t *testing.T) {
	hub, history := newTestHub(t)
	c := fakeClient("v", 8)
	require.True(t, hub.Register(c))
	require.True(t, hub.Subscribe(c, "JOBY"))

	hub.Ticks() <- trade("JOBY", 0, "6.50", 100)
	hub.Ticks() <- trade("JOBY", 10_000, "6.55", 50)
	hub.Ticks() <- trade("JOBY", 35_000, "6.60", 200)

	receive(t, c)
	receive(t, c)
	final := receive(t, c)
	live := receive(t, c)

	assert.False(t, final.IsLive)
	assert.Equal(t, int64(150), final.Volume)
	assert.True(t, live.IsLive)
	assert.Equal(t, int64(30_000), live.Timestamp)

	candles := history.GetCandles("JOBY", 0)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(0), candles[0].Timestamp)
	assert.Equal(t, int64(30_000), candles[1].Timestamp)
}

func TestHubCatchUpOnSubscribe(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.Ticks() <- trade("ACHR", 5_000, "4.25", 10)
	require.Eventually(t, func() bool { return hub.Stats().TicksIngested == 1 }, waitFor, 10*time.Millisecond)

	c := fakeClient("late", 8)
	require.True(t, hub.Register(c))
	require.True(t, hub.Subscribe(c, "ACHR"))

	snap := receive(t, c)
	assert.Equal(t, "ACHR", snap.Symbol)
	assert.Equal(t, int64(0), snap.Timestamp)
	assert.True(t, snap.IsLive)
}

func TestHubNoCatchUpWithoutTicks(t *testing.T) {
	hub, _ := newTestHub(t)
	c := fakeClient("v", 8)
	require.True(t, hub.Register(c))
	require.True(t, hub.Subscribe(c, "JOBY"))

	require.Eventually(t, func() bool { return hub.Stats().SubscribersByKey["JOBY"] == 1 }, waitFor, 10*time.Millisecond)
	assert.Empty(t, c.send)
}

func TestHubUnknownSymbolLeavesViewerUnsubscribed(t *testing.T) {
	hub, _ := newTestHub(t)
	c := fakeClient("v", 8)
	require.True(t, hub.Register(c))
	require.True(t, hub.Subscribe(c, "JOBY"))
	require.True(t, hub.Subscribe(c, "TSLA"))

	require.Eventually(t, func() bool { return hub.Stats().SubscribersByKey["JOBY"] == 0 }, waitFor, 10*time.Millisecond)

	hub.Ticks() <- trade("JOBY", 0, "6.50", 1)
	require.Eventually(t, func() bool { return hub.Stats().TicksIngested == 1 }, waitFor, 10*time.Millisecond)
	assert.Empty(t, c.send)
	assert.Equal(t, 1, hub.Stats().Viewers)
}

func TestHubPrunesSlowViewer(t *testing.T) {
	hub, _ := newTestHub(t)
	slow := fakeClient("slow", 1)
	fast := fakeClient("fast", 8)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))
	require.True(t, hub.Subscribe(slow, "JOBY"))
	require.True(t, hub.Subscribe(fast, "JOBY"))

	hub.Ticks() <- trade("JOBY", 0, "6.50", 1)
	hub.Ticks() <- trade("JOBY", 1_000, "6.51", 1)

	receive(t, fast)
	receive(t, fast)
	require.Eventually(t, func() bool { return hub.Stats().Viewers == 1 }, waitFor, 10*time.Millisecond)

	// The queued message is still readable, then the channel is closed.
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
	assert.Equal(t, 1, hub.Stats().SubscribersByKey["JOBY"])
}

func TestHubCountsDroppedTicks(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.Ticks() <- trade("TSLA", 0, "100", 1)
	hub.Ticks() <- trade("JOBY", 0, "0", 1)

	require.Eventually(t, func() bool { return hub.Stats().TicksDropped == 2 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, int64(0), hub.Stats().TicksIngested)
}

func TestHubUnregisterAndShutdown(t *testing.T) {
	l := logger.NewLoggerWithWriter(io.Discard, "ERROR", "test")
	reg := registry.New([]string{"JOBY"})
	hub := NewHub(
		analysis.NewCandleAggregator(reg, analysis.DefaultIntervalMs, l),
		subscription.NewDirectory[*Client](reg),
		utils.NewCandleHistory(10, analysis.DefaultIntervalMs, l),
		l,
	)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	gone := fakeClient("gone", 1)
	kept := fakeClient("kept", 1)
	require.True(t, hub.Register(gone))
	require.True(t, hub.Register(kept))
	require.True(t, hub.Subscribe(gone, "JOBY"))

	hub.Unregister(gone)
	hub.Unregister(gone)
	_, ok := <-gone.send
	assert.False(t, ok)

	cancel()
	<-hub.done
	_, ok = <-kept.send
	assert.False(t, ok)
	assert.False(t, hub.Register(fakeClient("after", 1)))
}

func TestHubCatchUpCountsAsLiveSnapshot(t *testing.T) {
	hub, _ := newTestHub(t)
	hub.Ticks() <- trade("ACHR", 0, "9.10", 10)
	require.Eventually(t, func() bool { return hub.Stats().TicksIngested == 1 }, waitFor, 10*time.Millisecond)

	live := metrics.SnapshotsPublished.WithLabelValues("ACHR", "live")
	before := testutil.ToFloat64(live)

	late := fakeClient("late", 4)
	require.True(t, hub.Register(late))
	require.True(t, hub.Subscribe(late, "ACHR"))
	receive(t, late)

	assert.Equal(t, before+1, testutil.ToFloat64(live))
	assert.Equal(t, int64(1), hub.Stats().SnapshotsSent)
}

func TestClientCoalescesSubscribesOverRate(t *testing.T) {
	hub, _ := newTestHub(t)
	c := NewClient(hub, nil, models.MViewerConfig{SendBuffer: 8, MessagesPerSecond: 5, Burst: 10})
	require.True(t, hub.Register(c))

	// Burst of 10 passes straight through, the 11th waits for a token
	for i := 0; i < 11; i++ {
		symbol := "JOBY"
		if i%2 == 1 {
			symbol = "ACHR"
		}
		payload, err := json.Marshal(models.MViewerCommand{Action: models.ActionSubscribe, Symbol: symbol})
		require.NoError(t, err)
		require.True(t, c.handleMessage(payload))
	}

	assert.Eventually(t, func() bool {
		counts := hub.Stats().SubscribersByKey
		return counts["JOBY"] == 1 && counts["ACHR"] == 0
	}, waitFor, 10*time.Millisecond)
}

func TestClientLatestParkedSubscribeWins(t *testing.T) {
	hub, _ := newTestHub(t)
	c := NewClient(hub, nil, models.MViewerConfig{SendBuffer: 8, MessagesPerSecond: 10, Burst: 1})
	require.True(t, hub.Register(c))

	for _, symbol := range []string{"JOBY", "ACHR", "JOBY", "ACHR"} {
		payload, err := json.Marshal(models.MViewerCommand{Action: models.ActionSubscribe, Symbol: symbol})
		require.NoError(t, err)
		require.True(t, c.handleMessage(payload))
	}
	c.mu.Lock()
	assert.Equal(t, "ACHR", c.pending)
	c.mu.Unlock()

	assert.Eventually(t, func() bool {
		counts := hub.Stats().SubscribersByKey
		return counts["ACHR"] == 1 && counts["JOBY"] == 0
	}, waitFor, 10*time.Millisecond)
}
