package utils

import (
	"time"

	"candle-stream/src/logger"
)

// MarketScheduler reports whether the exchange behind the symbol universe is open.
// The live feed only carries trades during sessions, so an idle feed while
// closed is expected rather than a fault.
type MarketScheduler struct {
	Calendar *TradingCalendar
	Logger   *logger.Logger
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(mic string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendar: GetCalendar(mic),
		Logger:   l,
		now:      time.Now,
	}
	if ms.Calendar.Fallback {
		l.Warning("No exchange calendar for %q, using Mon-Fri 09:30-16:00 New York", mic)
	}
	return ms
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the market is open right now.
func (ms *MarketScheduler) IsOpen() bool {
	return ms.Calendar.IsOpenOnMinute(ms.now().UTC())
}

// Status returns "open" or "closed".
func (ms *MarketScheduler) Status() string {
	if ms.IsOpen() {
		return "open"
	}
	return "closed"
}
