// Package registry holds the closed set of instruments the service tracks.
package registry

import (
	"slices"

	"github.com/shopspring/decimal"
)

// fallbackBasePrice seeds the synthetic feed for symbols without a known price.
var fallbackBasePrice = decimal.NewFromFloat(10.00)

var basePrices = map[string]decimal.Decimal{
	"JOBY": decimal.RequireFromString("6.50"),
	"ACHR": decimal.RequireFromString("4.25"),
	"SVIX": decimal.RequireFromString("45.80"),
	"UVIX": decimal.RequireFromString("23.40"),
	"VXX":  decimal.RequireFromString("38.90"),
	"WULF": decimal.RequireFromString("8.75"),
}

// SymbolRegistry is immutable after construction and safe for concurrent reads.
type SymbolRegistry struct {
	symbols []string
	index   map[string]struct{}
}

// New builds a registry from symbols, dropping empty and duplicate entries.
func New(symbols []string) *SymbolRegistry {
	r := &SymbolRegistry{index: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := r.index[s]; ok {
			continue
		}
		r.index[s] = struct{}{}
		r.symbols = append(r.symbols, s)
	}
	return r
}

func (r *SymbolRegistry) Contains(symbol string) bool {
	_, ok := r.index[symbol]
	return ok
}

// Symbols returns a copy in registration order.
func (r *SymbolRegistry) Symbols() []string {
	return slices.Clone(r.symbols)
}

func (r *SymbolRegistry) Len() int {
	return len(r.symbols)
}

// BasePrice is the starting price of the synthetic random walk.
func (r *SymbolRegistry) BasePrice(symbol string) decimal.Decimal {
	if p, ok := basePrices[symbol]; ok {
		return p
	}
	return fallbackBasePrice
}
