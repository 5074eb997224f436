package models

import "github.com/shopspring/decimal"

// MTradeTick is a single trade event handed from a feed source to the aggregator.
type MTradeTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Size      int64           `json:"size"`
	Timestamp int64           `json:"timestamp"` // ms since epoch
}

// MCandleSnapshot is the immutable projection of a candle pushed to viewers.
// Prices are rounded to 2 decimals; Timestamp is the aligned period start.
type MCandleSnapshot struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	IsLive    bool    `json:"isLive,omitempty"`
}
