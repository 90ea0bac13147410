// Package matcher implements the crossing state machine that drives
// each symbol's order book: it dispatches decoded events and, for
// creates, runs the price-time-priority crossing loop that produces
// trades.
//
// Grounded on saiputravu-Exchange/internal/engine/engine.go's registry
// of books keyed by asset type, and on original_source's
// src/engine/core/matcher.py for the exact dispatch and crossing
// control flow (per-symbol lock held for the whole event, amend/cancel
// never re-enter the crossing loop).
package matcher

import (
	"fmt"
	"sync"

	"fenrir/internal/book"
	"fenrir/internal/types"
)

// Matcher owns one OrderBook per symbol and a mutual-exclusion guard
// per symbol. Books and locks are created lazily, atomically, on first
// reference — guarded by registryMu, separate from the per-symbol
// locks, per spec.md §9's lazy-registration note.
type Matcher struct {
	registryMu sync.Mutex
	books      map[types.Symbol]*book.OrderBook
	locks      map[types.Symbol]*sync.Mutex
}

// New returns an empty Matcher. Symbols are registered lazily as
// events for them arrive.
func New() *Matcher {
	return &Matcher{
		books: make(map[types.Symbol]*book.OrderBook),
		locks: make(map[types.Symbol]*sync.Mutex),
	}
}

// getBook returns (creating if necessary) the book and guard for
// symbol, atomically.
func (m *Matcher) getBook(symbol types.Symbol) (*book.OrderBook, *sync.Mutex) {
	m.registryMu.Lock()
	defer m.registryMu.Unlock()

	b, ok := m.books[symbol]
	if !ok {
		b = book.New(symbol)
		m.books[symbol] = b
	}
	lock, ok := m.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[symbol] = lock
	}
	return b, lock
}

// InvariantViolation marks an internal invariant failure: the lookup
// and price-level indexes disagreeing, or a crossed book surviving a
// create. It is never expected in normal operation; callers should
// treat it as fatal rather than silently drop or reorder liquidity,
// per spec.md §7.
type InvariantViolation struct {
	Symbol types.Symbol
	Err    error
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("matcher: invariant violated for %s: %v", e.Symbol, e.Err)
}

func (e *InvariantViolation) Unwrap() error { return e.Err }

// HandleEvent resolves the book for event's symbol, acquires that
// symbol's guard for the duration of processing, and dispatches on
// event kind. CREATE drives the crossing loop and returns the trades
// it produced, in execution order. AMEND and CANCEL never produce
// trades, even when an amend leaves the book crossed (spec.md §9,
// "amend does not trigger matching" — an explicit, intentional design
// choice, not an oversight).
//
// A panic of type *InvariantViolation indicates the book's internal
// state has diverged from spec — a bug in the core, not a data error.
func (m *Matcher) HandleEvent(event types.Event) []types.Trade {
	b, lock := m.getBook(event.Base().Symbol)

	lock.Lock()
	defer lock.Unlock()

	var trades []types.Trade
	requireUncrossed := false
	switch ev := event.(type) {
	case types.CreateEvent:
		trades = matchAndRest(b, ev)
		requireUncrossed = true
	case types.AmendEvent:
		b.Amend(ev)
	case types.CancelEvent:
		b.Cancel(ev.OrderID)
	default:
		return nil
	}

	if err := b.CheckStructure(); err != nil {
		panic(&InvariantViolation{Symbol: b.Symbol, Err: err})
	}
	if requireUncrossed && b.Crossed() {
		panic(&InvariantViolation{Symbol: b.Symbol, Err: fmt.Errorf("book left crossed after create")})
	}

	return trades
}

// matchAndRest runs the crossing loop for a create event: it consumes
// resting liquidity on the opposite side while prices cross, emits one
// trade per fill at the resting (maker) order's price, and rests any
// unfilled remainder. order.qty > 0 and order.price > 0 are
// preconditions enforced by the event's producer.
func matchAndRest(b *book.OrderBook, order types.CreateEvent) []types.Trade {
	if b.IsActive(order.OrderID) {
		// Idempotent re-delivery of a create: tolerate silently.
		return nil
	}

	var trades []types.Trade

	for order.Qty > 0 {
		if order.Side == types.Buy {
			ask := b.BestAsk()
			if ask == nil || ask.Price > order.Price {
				break
			}
			tradeQty := min(order.Qty, ask.Qty)
			trades = append(trades, types.Trade{
				TS:           order.TS,
				Seq:          order.Seq,
				Symbol:       order.Symbol,
				BuyOrderID:   order.OrderID,
				SellOrderID:  ask.OrderID,
				Qty:          tradeQty,
				Price:        ask.Price,
				MakerOrderID: ask.OrderID,
				TakerSide:    types.Buy,
			})
			order.Qty -= tradeQty
			b.ReduceQty(ask.OrderID, tradeQty)
		} else {
			bid := b.BestBid()
			if bid == nil || bid.Price < order.Price {
				break
			}
			tradeQty := min(order.Qty, bid.Qty)
			trades = append(trades, types.Trade{
				TS:           order.TS,
				Seq:          order.Seq,
				Symbol:       order.Symbol,
				BuyOrderID:   bid.OrderID,
				SellOrderID:  order.OrderID,
				Qty:          tradeQty,
				Price:        bid.Price,
				MakerOrderID: bid.OrderID,
				TakerSide:    types.Sell,
			})
			order.Qty -= tradeQty
			b.ReduceQty(bid.OrderID, tradeQty)
		}
	}

	if order.Qty > 0 {
		b.Add(order)
	}

	return trades
}
