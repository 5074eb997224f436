package utils

import (
	"candle-stream/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of finalized candles.
// Oldest entries are overwritten once full.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MCandleSnapshot
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}

	return &RingBuffer{
		data:     make([]models.MCandleSnapshot, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a candle, evicting the oldest when full
func (rb *RingBuffer) Append(candle models.MCandleSnapshot) {
	rb.data[rb.index] = candle
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest candles, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MCandleSnapshot {
	if rb.size == 0 || n <= 0 {
		return []models.MCandleSnapshot{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MCandleSnapshot, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all candles in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MCandleSnapshot {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Last returns the newest candle
func (rb *RingBuffer) Last() (models.MCandleSnapshot, bool) {
	if rb.size == 0 {
		return models.MCandleSnapshot{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

func (rb *RingBuffer) Size() int     { return rb.size }
func (rb *RingBuffer) Capacity() int { return rb.capacity }
func (rb *RingBuffer) IsFull() bool  { return rb.size == rb.capacity }

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
