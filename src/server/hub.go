package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"candle-stream/src/analysis"
	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/metrics"
	"candle-stream/src/models"
	"candle-stream/src/subscription"
	"candle-stream/src/utils"
)

// DefaultStatsInterval is how often the hub logs viewer counts.
const DefaultStatsInterval = 30 * time.Second

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

type subscribeRequest struct {
	client *Client
	symbol string
}

// Hub owns the aggregator, the subscription directory and the client set.
// Everything below is touched only from Run.
type Hub struct {
	Logger        *logger.Logger
	StatsInterval time.Duration

	aggregator *analysis.CandleAggregator
	directory  *subscription.Directory[*Client]
	history    *utils.CandleHistory
	errors     *helpers.ErrorHandler
	clients    map[*Client]struct{}

	ticks      chan models.MTradeTick
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscribeRequest
	done       chan struct{}

	// Read from HTTP handlers
	ticksIngested atomic.Int64
	ticksDropped  atomic.Int64
	snapshotsSent atomic.Int64
	viewers       atomic.Int64
	countsMu      sync.RWMutex
	counts        map[string]int
}

// -----------------------------------------------------------------------------

func NewHub(agg *analysis.CandleAggregator, dir *subscription.Directory[*Client], history *utils.CandleHistory, l *logger.Logger) *Hub {
	return &Hub{
		Logger:        l,
		StatsInterval: DefaultStatsInterval,
		aggregator:    agg,
		directory:     dir,
		history:       history,
		errors:        helpers.NewErrorHandler(l),
		clients:       make(map[*Client]struct{}),
		// Buffered so a burst from the feed does not stall the socket reader
		ticks:      make(chan models.MTradeTick, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscribeRequest),
		done:       make(chan struct{}),
		counts:     dir.Counts(),
	}
}

// -----------------------------------------------------------------------------

// Ticks is the inbound channel feed sources write to.
func (h *Hub) Ticks() chan<- models.MTradeTick {
	return h.ticks
}

// -----------------------------------------------------------------------------

// Run is the hub loop. It returns once ctx is cancelled, after closing every client.
func (h *Hub) Run(ctx context.Context) {
	interval := h.StatsInterval
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	stats := time.NewTicker(interval)
	defer stats.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.viewers.Store(int64(len(h.clients)))
			metrics.ViewersConnected.Set(float64(len(h.clients)))
			h.Logger.Info("Viewer %s connected (%d total)", client.id, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
				h.Logger.Info("Viewer %s disconnected (%d total)", client.id, len(h.clients))
			}

		case req := <-h.subscribe:
			h.handleSubscribe(req.client, req.symbol)

		case tick := <-h.ticks:
			h.ingest(tick)

		case <-stats.C:
			h.logStats()
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) ingest(tick models.MTradeTick) {
	snapshots := h.aggregator.Ingest(tick)
	if len(snapshots) == 0 {
		h.ticksDropped.Add(1)
		return
	}
	h.ticksIngested.Add(1)
	for _, snap := range snapshots {
		h.publish(snap)
	}
}

// -----------------------------------------------------------------------------

// publish records snap and fans it out to the symbol's viewers. A viewer whose
// queue is full is pruned rather than allowed to stall the loop.
func (h *Hub) publish(snap models.MCandleSnapshot) {
	h.history.Record(snap)
	h.Logger.Debug("%s %d close=%.2f volume=%d live=%t", snap.Symbol, snap.Timestamp, snap.Close, snap.Volume, snap.IsLive)

	members := h.directory.MembersOf(snap.Symbol)
	if len(members) == 0 {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		h.Logger.Error("Failed to encode snapshot for %s: %v", snap.Symbol, err)
		return
	}

	kind := "live"
	if !snap.IsLive {
		kind = "final"
	}

	for _, client := range members {
		if _, ok := h.clients[client]; !ok {
			continue
		}
		select {
		case client.send <- payload:
			h.snapshotsSent.Add(1)
			metrics.SnapshotsPublished.WithLabelValues(snap.Symbol, kind).Inc()
		default:
			h.Logger.Warning("Viewer %s send queue full, disconnecting", client.id)
			metrics.ViewersPruned.Inc()
			h.dropClient(client)
		}
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) handleSubscribe(client *Client, symbol string) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	prev, had := h.directory.SymbolOf(client)
	err := h.directory.Subscribe(client, symbol)
	h.refreshCounts()
	if err != nil {
		h.errors.Handle(helpers.NewSubscriptionError("viewer "+client.id+" asked for "+symbol, err), "subscribe")
		return
	}
	if had && prev != symbol {
		h.Logger.Debug("Viewer %s switched from %s to %s", client.id, prev, symbol)
	} else {
		h.Logger.Debug("Viewer %s subscribed to %s", client.id, symbol)
	}

	// Catch-up: the in-progress candle, so the chart is not blank until the next tick
	snap, ok := h.aggregator.Current(symbol)
	if !ok {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		h.Logger.Error("Failed to encode catch-up for %s: %v", symbol, err)
		return
	}
	select {
	case client.send <- payload:
		h.snapshotsSent.Add(1)
		metrics.SnapshotsPublished.WithLabelValues(symbol, "live").Inc()
	default:
		metrics.ViewersPruned.Inc()
		h.dropClient(client)
	}
}

// -----------------------------------------------------------------------------

func (h *Hub) dropClient(client *Client) {
	if sym, ok := h.directory.UnsubscribeAll(client); ok {
		h.Logger.Debug("Viewer %s left %s", client.id, sym)
	}
	delete(h.clients, client)
	close(client.send)
	h.refreshCounts()
	h.viewers.Store(int64(len(h.clients)))
	metrics.ViewersConnected.Set(float64(len(h.clients)))
}

// -----------------------------------------------------------------------------

func (h *Hub) shutdown() {
	for client := range h.clients {
		h.dropClient(client)
	}
	h.Logger.Info("Hub stopped")
}

// -----------------------------------------------------------------------------

func (h *Hub) refreshCounts() {
	counts := h.directory.Counts()
	h.countsMu.Lock()
	h.counts = counts
	h.countsMu.Unlock()
}

// -----------------------------------------------------------------------------

func (h *Hub) logStats() {
	h.countsMu.RLock()
	defer h.countsMu.RUnlock()
	h.Logger.Info("Stats: %d viewers, subscribers %v, %d ticks ingested, %d dropped",
		h.viewers.Load(), h.counts, h.ticksIngested.Load(), h.ticksDropped.Load())
}

// -----------------------------------------------------------------------------
// Thread-safe accessors
// -----------------------------------------------------------------------------

// Stats returns counters and per-symbol subscriber counts. Feed fields are left empty.
func (h *Hub) Stats() models.MStreamStats {
	h.countsMu.RLock()
	counts := make(map[string]int, len(h.counts))
	for sym, n := range h.counts {
		counts[sym] = n
	}
	h.countsMu.RUnlock()

	return models.MStreamStats{
		TicksIngested:    h.ticksIngested.Load(),
		TicksDropped:     h.ticksDropped.Load(),
		SnapshotsSent:    h.snapshotsSent.Load(),
		HandledErrors:    h.errors.Count(),
		Viewers:          int(h.viewers.Load()),
		SubscribersByKey: counts,
	}
}

// -----------------------------------------------------------------------------
// Client -> hub handoff; all return false once the hub has stopped
// -----------------------------------------------------------------------------

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Subscribe(c *Client, symbol string) bool {
	select {
	case h.subscribe <- subscribeRequest{client: c, symbol: symbol}:
		return true
	case <-h.done:
		return false
	}
}
