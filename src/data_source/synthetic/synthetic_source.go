package synthetic

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"candle-stream/src/analysis/core"
	"candle-stream/src/logger"
	"candle-stream/src/models"
	"candle-stream/src/registry"

	"github.com/shopspring/decimal"
)

const (
	SourceName          = "synthetic"
	DefaultTickInterval = time.Second
)

var minPrice = decimal.RequireFromString("0.10")

// -----------------------------------------------------------------------------

// Source emits a random-walk trade per symbol on every tick interval.
// The first tick of a candle period moves the price up to ±2 with a large
// size; later ticks in the period move up to ±1 with a small size.
type Source struct {
	Logger       *logger.Logger
	Registry     *registry.SymbolRegistry
	TickInterval time.Duration
	IntervalMs   int64

	rng        *rand.Rand
	now        func() time.Time
	prices     map[string]decimal.Decimal
	lastPeriod map[string]int64
	running    atomic.Bool
}

// -----------------------------------------------------------------------------

func NewSource(reg *registry.SymbolRegistry, tickInterval time.Duration, intervalMs int64, l *logger.Logger) *Source {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	s := &Source{
		Logger:       l,
		Registry:     reg,
		TickInterval: tickInterval,
		IntervalMs:   intervalMs,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
		prices:       make(map[string]decimal.Decimal, reg.Len()),
		lastPeriod:   make(map[string]int64, reg.Len()),
	}
	for _, sym := range reg.Symbols() {
		s.prices[sym] = reg.BasePrice(sym)
	}
	return s
}

// WithRand replaces the random source. Call before Start.
func (s *Source) WithRand(rng *rand.Rand) *Source {
	s.rng = rng
	return s
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string { return SourceName }

func (s *Source) IsRealTime() bool { return false }

// State reports subscribed while generating; there is no upstream session.
func (s *Source) State() models.FeedState {
	if s.running.Load() {
		return models.FeedSubscribed
	}
	return models.FeedDisconnected
}

// -----------------------------------------------------------------------------

func (s *Source) Start(ctx context.Context, outputChan chan<- models.MTradeTick, wg *sync.WaitGroup) error {
	wg.Add(1)
	s.running.Store(true)
	go s.runLoop(ctx, outputChan, wg)
	s.Logger.Info("Started %s source for %d symbols every %v", SourceName, s.Registry.Len(), s.TickInterval)
	return nil
}

// -----------------------------------------------------------------------------

func (s *Source) runLoop(ctx context.Context, outputChan chan<- models.MTradeTick, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.running.Store(false)

	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			for _, sym := range s.Registry.Symbols() {
				select {
				case outputChan <- s.next(sym, now):
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// next advances sym's walk and returns the resulting trade.
func (s *Source) next(symbol string, now time.Time) models.MTradeTick {
	ts := now.UnixMilli()
	period := core.PeriodStart(ts, s.IntervalMs)
	last, seen := s.lastPeriod[symbol]
	boundary := !seen || last != period
	s.lastPeriod[symbol] = period

	var delta float64
	var size int64
	if boundary {
		delta = (s.rng.Float64() - 0.5) * 4
		size = int64(s.rng.Intn(10_000)) + 1_000
	} else {
		delta = (s.rng.Float64() - 0.5) * 2
		size = int64(s.rng.Intn(500))
	}

	price := s.prices[symbol].Add(decimal.NewFromFloat(delta)).Round(core.PricePlaces)
	if price.LessThan(minPrice) {
		price = minPrice
	}
	s.prices[symbol] = price

	return models.MTradeTick{Symbol: symbol, Price: price, Size: size, Timestamp: ts}
}
