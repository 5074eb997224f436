package utils

import "math"

// -----------------------------------------------------------------------------

// A US regular session runs 09:30-16:00 New York time: 390 minutes.
const (
	DefaultMIC     = "xnys"
	SessionMinutes = 390
)

// -----------------------------------------------------------------------------

// CandlesPerSession returns how many candles of intervalMs cover one regular session.
func CandlesPerSession(intervalMs int64) int {
	if intervalMs <= 0 {
		return 0
	}
	return int(math.Ceil(float64(SessionMinutes*60_000) / float64(intervalMs)))
}
