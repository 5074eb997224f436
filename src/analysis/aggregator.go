package analysis

import (
	"candle-stream/src/analysis/core"
	"candle-stream/src/logger"
	"candle-stream/src/metrics"
	"candle-stream/src/models"
	"candle-stream/src/registry"
)

// DefaultIntervalMs is the candle width (30 s).
const DefaultIntervalMs int64 = 30_000

// -----------------------------------------------------------------------------

// CandleAggregator folds trade ticks into per-symbol candles.
// It is not safe for concurrent use; the hub loop is its only caller.
type CandleAggregator struct {
	Registry   *registry.SymbolRegistry
	IntervalMs int64
	Logger     *logger.Logger
	buckets    map[string]*core.Bucket
}

// -----------------------------------------------------------------------------

func NewCandleAggregator(reg *registry.SymbolRegistry, intervalMs int64, log *logger.Logger) *CandleAggregator {
	if intervalMs <= 0 {
		intervalMs = DefaultIntervalMs
	}
	return &CandleAggregator{
		Registry:   reg,
		IntervalMs: intervalMs,
		Logger:     log,
		buckets:    make(map[string]*core.Bucket, reg.Len()),
	}
}

// -----------------------------------------------------------------------------

// Ingest folds tick into its symbol's bucket and returns the snapshots to publish:
//   - same period (or first tick): one live snapshot
//   - later period: the finalized previous candle, then a live one seeded by tick
//   - unknown symbol, invalid tick, or older period: nothing
func (a *CandleAggregator) Ingest(tick models.MTradeTick) []models.MCandleSnapshot {
	if !a.Registry.Contains(tick.Symbol) {
		metrics.TicksDropped.WithLabelValues(metrics.DropUnknownSymbol).Inc()
		a.Logger.Debug("Dropping tick for unknown symbol %q", tick.Symbol)
		return nil
	}
	if !tick.Price.IsPositive() || tick.Size < 0 {
		metrics.TicksDropped.WithLabelValues(metrics.DropInvalid).Inc()
		a.Logger.Warning("Dropping invalid tick for %s: price=%s size=%d", tick.Symbol, tick.Price, tick.Size)
		return nil
	}

	period := core.PeriodStart(tick.Timestamp, a.IntervalMs)
	bucket, ok := a.buckets[tick.Symbol]

	switch {
	case !ok:
		bucket = core.NewBucket(period, tick)
		a.buckets[tick.Symbol] = bucket
		metrics.TicksIngested.WithLabelValues(tick.Symbol).Inc()
		return []models.MCandleSnapshot{bucket.Snapshot(tick.Symbol, true)}

	case period == bucket.PeriodStart:
		bucket.Fold(tick)
		metrics.TicksIngested.WithLabelValues(tick.Symbol).Inc()
		return []models.MCandleSnapshot{bucket.Snapshot(tick.Symbol, true)}

	case period > bucket.PeriodStart:
		out := make([]models.MCandleSnapshot, 0, 2)
		if len(bucket.Trades) > 0 {
			out = append(out, bucket.Snapshot(tick.Symbol, false))
		}
		next := core.NewBucket(period, tick)
		a.buckets[tick.Symbol] = next
		metrics.TicksIngested.WithLabelValues(tick.Symbol).Inc()
		return append(out, next.Snapshot(tick.Symbol, true))

	default:
		metrics.TicksDropped.WithLabelValues(metrics.DropLate).Inc()
		a.Logger.Debug("Dropping late tick for %s: period %d behind current %d", tick.Symbol, period, bucket.PeriodStart)
		return nil
	}
}

// -----------------------------------------------------------------------------

// Current returns the live snapshot of the in-progress candle, if any.
func (a *CandleAggregator) Current(symbol string) (models.MCandleSnapshot, bool) {
	bucket, ok := a.buckets[symbol]
	if !ok || len(bucket.Trades) == 0 {
		return models.MCandleSnapshot{}, false
	}
	return bucket.Snapshot(symbol, true), true
}
