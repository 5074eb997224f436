package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "candle_stream"

var (
	TicksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_ingested_total",
			Help:      "Trade ticks folded into a candle",
		},
		[]string{"symbol"},
	)

	TicksDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Trade ticks rejected by the aggregator",
		},
		[]string{"reason"},
	)

	SnapshotsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Candle snapshots fanned out to viewers",
		},
		[]string{"symbol", "kind"},
	)

	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers_connected",
			Help:      "Open viewer connections",
		},
	)

	ViewersPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "viewers_pruned_total",
			Help:      "Viewers dropped because their send queue was full",
		},
	)

	MalformedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Inbound payloads that could not be decoded",
		},
		[]string{"origin"},
	)

	FeedReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_reconnects_total",
			Help:      "Scheduled upstream reconnection attempts",
		},
		[]string{"feed"},
	)

	FeedState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_state",
			Help:      "Upstream connection state (0=disconnected 1=connecting 2=auth_pending 3=subscribed)",
		},
		[]string{"feed"},
	)
)

// Drop reasons
const (
	DropUnknownSymbol = "unknown_symbol"
	DropLate          = "late"
	DropInvalid       = "invalid"
)
