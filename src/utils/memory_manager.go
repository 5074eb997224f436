package utils

import (
	"sync"

	"candle-stream/src/logger"
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// CandleHistory keeps recent finalized candles plus the live one per symbol.
// Readers are HTTP handlers; the writer is the hub loop.
// -----------------------------------------------------------------------------

type CandleHistory struct {
	Finalized map[string]*RingBuffer
	Live      map[string]models.MCandleSnapshot
	Capacity  int
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewCandleHistory keeps up to capacity finalized candles per symbol,
// capped at one regular session of intervalMs candles.
func NewCandleHistory(capacity int, intervalMs int64, l *logger.Logger) *CandleHistory {
	if limit := CandlesPerSession(intervalMs); limit > 0 && capacity > limit {
		capacity = limit
	}
	return &CandleHistory{
		Finalized: make(map[string]*RingBuffer),
		Live:      make(map[string]models.MCandleSnapshot),
		Capacity:  capacity,
		Logger:    l,
	}
}

// -----------------------------------------------------------------------------

// Record stores a published snapshot. A final candle retires the live one of
// the same period.
func (h *CandleHistory) Record(snap models.MCandleSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.IsLive {
		h.Live[snap.Symbol] = snap
		return
	}

	if live, ok := h.Live[snap.Symbol]; ok && live.Timestamp <= snap.Timestamp {
		delete(h.Live, snap.Symbol)
	}
	if h.Capacity <= 0 {
		return
	}
	buf, ok := h.Finalized[snap.Symbol]
	if !ok {
		buf = NewRingBuffer(h.Capacity)
		h.Finalized[snap.Symbol] = buf
	}
	buf.Append(snap)
}

// -----------------------------------------------------------------------------

// GetCandles returns up to limit finalized candles (oldest first) followed by
// the live candle when one exists. limit <= 0 means everything kept.
func (h *CandleHistory) GetCandles(symbol string, limit int) []models.MCandleSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []models.MCandleSnapshot
	if buf, ok := h.Finalized[symbol]; ok {
		if limit <= 0 {
			out = buf.GetAll()
		} else {
			out = buf.GetLatest(limit)
		}
	}
	if live, ok := h.Live[symbol]; ok {
		out = append(out, live)
	}
	if out == nil {
		out = []models.MCandleSnapshot{}
	}
	return out
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of symbols with any data
func (h *CandleHistory) SymbolCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(h.Finalized)+len(h.Live))
	for sym := range h.Finalized {
		seen[sym] = struct{}{}
	}
	for sym := range h.Live {
		seen[sym] = struct{}{}
	}
	return len(seen)
}
