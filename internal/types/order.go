// Package types holds the wire and domain types shared by the matching
// core and its external collaborators: symbols, sides, event envelopes,
// resting orders and trades.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Symbol is a tag drawn from the closed enumeration of tradeable
// instruments. The set is extensible but fixed at compile time.
type Symbol string

const (
	ABC Symbol = "ABC"
	XYZ Symbol = "XYZ"
	DEF Symbol = "DEF"
)

// Valid reports whether s is a registered symbol.
func (s Symbol) Valid() bool {
	switch s {
	case ABC, XYZ, DEF:
		return true
	default:
		return false
	}
}

// Side is the direction of an order: buy or sell.
type Side string

const (
	Buy  Side = "B"
	Sell Side = "S"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// EventKind distinguishes the three event shapes the engine consumes.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventAmend  EventKind = "amend"
	EventCancel EventKind = "cancel"
)

// ErrUnknownEventKind is returned by Decode when the `type` field does
// not match one of the registered event kinds.
var ErrUnknownEventKind = errors.New("types: unknown event kind")

// BaseEvent carries the fields common to every inbound event.
type BaseEvent struct {
	Kind    EventKind `json:"type"`
	TS      int64     `json:"ts"`
	Seq     int64     `json:"seq"`
	Symbol  Symbol    `json:"symbol"`
	OrderID string    `json:"order_id"`
}

// Event is implemented by CreateEvent, AmendEvent and CancelEvent.
type Event interface {
	Base() BaseEvent
}

// CreateEvent introduces a new order into a book.
type CreateEvent struct {
	BaseEvent
	Side  Side  `json:"side"`
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

func (e CreateEvent) Base() BaseEvent { return e.BaseEvent }

// AmendEvent carries an optional price/qty/side change for a resting
// order. At least one optional field is expected to be present, but a
// fully-empty amend is a well-defined no-op.
type AmendEvent struct {
	BaseEvent
	Qty   *int64 `json:"qty,omitempty"`
	Price *int64 `json:"price,omitempty"`
	Side  *Side  `json:"side,omitempty"`
}

func (e AmendEvent) Base() BaseEvent { return e.BaseEvent }

// CancelEvent removes a resting order by id.
type CancelEvent struct {
	BaseEvent
}

func (e CancelEvent) Base() BaseEvent { return e.BaseEvent }

// Decode parses one inbound JSON event, dispatching on the `type`
// field the way the source's engine/main.py does before handing the
// result to the matcher. Malformed JSON or an unrecognized type is
// reported to the caller and must never reach the matcher.
func Decode(data []byte) (Event, error) {
	var probe BaseEvent
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("types: decode event: %w", err)
	}

	switch probe.Kind {
	case EventCreate:
		var ev CreateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("types: decode create event: %w", err)
		}
		return ev, nil
	case EventAmend:
		var ev AmendEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("types: decode amend event: %w", err)
		}
		return ev, nil
	case EventCancel:
		var ev CancelEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("types: decode cancel event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, probe.Kind)
	}
}

// RestingOrder is an order that has been accepted into a book. Qty and
// Price are mutated in place by Amend/ReduceQty; TS and Seq never
// change once the order is created.
type RestingOrder struct {
	Price   int64
	TS      int64
	Seq     int64
	OrderID string
	Qty     int64
	Side    Side
}

// Before reports whether o has strictly earlier arrival priority than
// other, comparing (TS, Seq) lexicographically.
func (o *RestingOrder) Before(other *RestingOrder) bool {
	if o.TS != other.TS {
		return o.TS < other.TS
	}
	return o.Seq < other.Seq
}

// Trade is an immutable execution record. It is emitted by the
// matcher, never mutated afterward.
type Trade struct {
	TS           int64  `json:"ts"`
	Seq          int64  `json:"seq"`
	Symbol       Symbol `json:"symbol"`
	BuyOrderID   string `json:"buy_order_id"`
	SellOrderID  string `json:"sell_order_id"`
	Qty          int64  `json:"qty"`
	Price        int64  `json:"price"`
	MakerOrderID string `json:"maker_order_id"`
	TakerSide    Side   `json:"taker_side"`
}
