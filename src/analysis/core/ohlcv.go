package core

import (
	"candle-stream/src/models"

	"github.com/shopspring/decimal"
)

// PricePlaces is the rounding applied when a bucket is projected for viewers.
const PricePlaces = 2

// -----------------------------------------------------------------------------

// PeriodStart aligns ts (ms) down to a multiple of intervalMs.
// Floor semantics hold for negative timestamps too.
func PeriodStart(ts, intervalMs int64) int64 {
	start := ts / intervalMs * intervalMs
	if ts < 0 && ts%intervalMs != 0 {
		start -= intervalMs
	}
	return start
}

// -----------------------------------------------------------------------------

// Bucket is the mutable state of one in-progress candle. Prices keep full precision.
type Bucket struct {
	PeriodStart int64
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      int64
	Trades      []models.MTradeTick
}

// NewBucket opens a bucket seeded solely by tick.
func NewBucket(periodStart int64, tick models.MTradeTick) *Bucket {
	return &Bucket{
		PeriodStart: periodStart,
		Open:        tick.Price,
		High:        tick.Price,
		Low:         tick.Price,
		Close:       tick.Price,
		Volume:      tick.Size,
		Trades:      []models.MTradeTick{tick},
	}
}

// -----------------------------------------------------------------------------

// Fold extends the bucket with a tick of the same period.
func (b *Bucket) Fold(tick models.MTradeTick) {
	if tick.Price.GreaterThan(b.High) {
		b.High = tick.Price
	}
	if tick.Price.LessThan(b.Low) {
		b.Low = tick.Price
	}
	b.Close = tick.Price
	b.Volume += tick.Size
	b.Trades = append(b.Trades, tick)
}

// -----------------------------------------------------------------------------

// Snapshot projects the bucket for transmission.
func (b *Bucket) Snapshot(symbol string, live bool) models.MCandleSnapshot {
	return models.MCandleSnapshot{
		Symbol:    symbol,
		Timestamp: b.PeriodStart,
		Open:      RoundPrice(b.Open),
		High:      RoundPrice(b.High),
		Low:       RoundPrice(b.Low),
		Close:     RoundPrice(b.Close),
		Volume:    b.Volume,
		IsLive:    live,
	}
}

// RoundPrice rounds half away from zero to PricePlaces.
func RoundPrice(d decimal.Decimal) float64 {
	return d.Round(PricePlaces).InexactFloat64()
}
