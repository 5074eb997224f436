package polygon

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Event kinds carried in the "ev" field.
const (
	evStatus = "status"
	evTrade  = "T"
	evQuote  = "Q"
)

// Status values that drive the session state machine.
const (
	StatusAuthSuccess = "auth_success"
	StatusAuthFailed  = "auth_failed"
)

// Event is one element of an upstream frame.
type Event interface {
	Kind() string
}

type StatusEvent struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type TradeEvent struct {
	Symbol    string          `json:"sym"`
	Price     decimal.Decimal `json:"p"`
	Size      int64           `json:"s"`
	Timestamp int64           `json:"t"` // Unix ms
}

type QuoteEvent struct {
	Symbol   string          `json:"sym"`
	BidPrice decimal.Decimal `json:"bp"`
	AskPrice decimal.Decimal `json:"ap"`
}

// UnknownEvent keeps the kind of anything we do not handle.
type UnknownEvent struct {
	Ev string
}

func (StatusEvent) Kind() string    { return evStatus }
func (TradeEvent) Kind() string     { return evTrade }
func (QuoteEvent) Kind() string     { return evQuote }
func (e UnknownEvent) Kind() string { return e.Ev }

// -----------------------------------------------------------------------------

type envelope struct {
	Ev string `json:"ev"`
}

// DecodeFrame splits an upstream frame (a JSON array, or a lone object) into events.
// A frame that is not JSON yields an error and no events. Elements that fail to
// decode are skipped; their errors are joined into the returned error alongside
// the events that did decode.
func DecodeFrame(data []byte) ([]Event, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var single json.RawMessage
		if objErr := json.Unmarshal(data, &single); objErr != nil || len(single) == 0 || single[0] != '{' {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		raw = []json.RawMessage{single}
	}

	events := make([]Event, 0, len(raw))
	var errs []error
	for i, elem := range raw {
		ev, err := decodeEvent(elem)
		if err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

func decodeEvent(elem json.RawMessage) (Event, error) {
	var env envelope
	if err := json.Unmarshal(elem, &env); err != nil {
		return nil, err
	}

	switch env.Ev {
	case evStatus:
		var s StatusEvent
		if err := json.Unmarshal(elem, &s); err != nil {
			return nil, err
		}
		return s, nil
	case evTrade:
		var t TradeEvent
		if err := json.Unmarshal(elem, &t); err != nil {
			return nil, err
		}
		if t.Symbol == "" {
			return nil, errors.New("trade without symbol")
		}
		return t, nil
	case evQuote:
		var q QuoteEvent
		if err := json.Unmarshal(elem, &q); err != nil {
			return nil, err
		}
		return q, nil
	default:
		return UnknownEvent{Ev: env.Ev}, nil
	}
}
