package subscription

import (
	"errors"

	"candle-stream/src/registry"
)

// ErrUnknownSymbol is returned when a viewer asks for a symbol outside the registry.
var ErrUnknownSymbol = errors.New("unknown symbol")

// -----------------------------------------------------------------------------

// Directory maps each symbol to the viewers watching it.
// A viewer watches at most one symbol. Not safe for concurrent use.
type Directory[M comparable] struct {
	registry *registry.SymbolRegistry
	members  map[string]map[M]struct{}
	current  map[M]string
}

// -----------------------------------------------------------------------------

func NewDirectory[M comparable](reg *registry.SymbolRegistry) *Directory[M] {
	d := &Directory[M]{
		registry: reg,
		members:  make(map[string]map[M]struct{}, reg.Len()),
		current:  make(map[M]string),
	}
	for _, sym := range reg.Symbols() {
		d.members[sym] = make(map[M]struct{})
	}
	return d
}

// -----------------------------------------------------------------------------

// Subscribe moves viewer to symbol. The previous subscription is always
// released first, so an unknown symbol leaves the viewer watching nothing.
func (d *Directory[M]) Subscribe(viewer M, symbol string) error {
	if prev, ok := d.current[viewer]; ok && prev == symbol {
		return nil
	}
	d.UnsubscribeAll(viewer)

	if !d.registry.Contains(symbol) {
		return ErrUnknownSymbol
	}
	d.members[symbol][viewer] = struct{}{}
	d.current[viewer] = symbol
	return nil
}

// -----------------------------------------------------------------------------

// UnsubscribeAll drops viewer from whatever it watches and returns that symbol.
// No-op when absent.
func (d *Directory[M]) UnsubscribeAll(viewer M) (string, bool) {
	prev, ok := d.current[viewer]
	if !ok {
		return "", false
	}
	delete(d.members[prev], viewer)
	delete(d.current, viewer)
	return prev, true
}

// -----------------------------------------------------------------------------

// MembersOf returns a copy of the viewers watching symbol.
func (d *Directory[M]) MembersOf(symbol string) []M {
	set := d.members[symbol]
	out := make([]M, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out
}

// SymbolOf reports the symbol viewer watches.
func (d *Directory[M]) SymbolOf(viewer M) (string, bool) {
	sym, ok := d.current[viewer]
	return sym, ok
}

// Counts returns viewers per symbol, including empty symbols.
func (d *Directory[M]) Counts() map[string]int {
	out := make(map[string]int, len(d.members))
	for sym, set := range d.members {
		out[sym] = len(set)
	}
	return out
}
