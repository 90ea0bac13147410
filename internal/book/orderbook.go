// Package book implements the per-symbol order book: two price-level
// indexes (bids, asks) sorted for sub-linear best-price lookup, backed
// by a FIFO deque per level, plus an id-to-resting-order lookup.
//
// Grounded on saiputravu-Exchange/internal/engine/orderbook.go's use of
// github.com/tidwall/btree for ordered price levels, generalized from
// float64 prices to the int64 prices the matching spec requires and
// from a per-order-book order slice to a deque per price level.
package book

import (
	"fmt"

	"github.com/tidwall/btree"

	"fenrir/internal/types"
)

// PriceLevel holds every resting order at one price, ordered ascending
// by (TS, Seq) — earliest arrival first.
type PriceLevel struct {
	Price  int64
	Orders []*types.RestingOrder
}

type priceLevels = btree.BTreeG[*PriceLevel]

// OrderBook is the resting-order book for a single symbol.
type OrderBook struct {
	Symbol types.Symbol

	// Bids: iteration/Min order is descending price (best = largest).
	Bids *priceLevels
	// Asks: iteration/Min order is ascending price (best = smallest).
	Asks *priceLevels

	// lookup is a non-owning index from order id to the resting order.
	// The pointer stored here is the exact same object referenced by
	// the owning price level's Orders slice, so mutating it through
	// either view (ReduceQty, Amend) is observed by both. See
	// spec.md §9 "cyclic shared mutability of resting orders".
	lookup map[string]*types.RestingOrder
}

// New constructs an empty book for symbol.
func New(symbol types.Symbol) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price // descending: Min() yields the best bid
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price // ascending: Min() yields the best ask
	})
	return &OrderBook{
		Symbol: symbol,
		Bids:   bids,
		Asks:   asks,
		lookup: make(map[string]*types.RestingOrder),
	}
}

func (b *OrderBook) levelsFor(side types.Side) *priceLevels {
	if side == types.Buy {
		return b.Bids
	}
	return b.Asks
}

// Add inserts a new resting order built from a create event. The
// caller (the matcher) guarantees order_id is not already active.
func (b *OrderBook) Add(ev types.CreateEvent) {
	order := &types.RestingOrder{
		Price:   ev.Price,
		TS:      ev.TS,
		Seq:     ev.Seq,
		OrderID: ev.OrderID,
		Qty:     ev.Qty,
		Side:    ev.Side,
	}
	b.insert(order)
}

// insert places order into its side's price-level deque, preserving
// ascending (TS, Seq) order within the level, and registers it in the
// lookup.
func (b *OrderBook) insert(order *types.RestingOrder) {
	levels := b.levelsFor(order.Side)

	level, ok := levels.Get(&PriceLevel{Price: order.Price})
	if !ok {
		level = &PriceLevel{Price: order.Price}
		levels.Set(level)
	}
	level.Orders = insertSorted(level.Orders, order)
	b.lookup[order.OrderID] = order
}

// insertSorted scans for the first peer with strictly later (TS, Seq)
// priority and inserts order before it. Price levels stay small in
// practice, so a linear scan suffices (spec.md §9).
func insertSorted(orders []*types.RestingOrder, order *types.RestingOrder) []*types.RestingOrder {
	for i, existing := range orders {
		if order.Before(existing) {
			orders = append(orders, nil)
			copy(orders[i+1:], orders[i:])
			orders[i] = order
			return orders
		}
	}
	return append(orders, order)
}

// removeFromLevel removes order from its price level's deque (by id,
// since resting orders never alias another order with the same id),
// dropping the level entirely once it becomes empty.
func removeFromLevel(levels *priceLevels, order *types.RestingOrder) {
	level, ok := levels.Get(&PriceLevel{Price: order.Price})
	if !ok {
		return
	}
	for i, o := range level.Orders {
		if o.OrderID == order.OrderID {
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			break
		}
	}
	if len(level.Orders) == 0 {
		levels.Delete(level)
	}
}

// Cancel removes order_id from the book. A no-op if it is not active.
func (b *OrderBook) Cancel(orderID string) {
	order, ok := b.lookup[orderID]
	if !ok {
		return
	}
	removeFromLevel(b.levelsFor(order.Side), order)
	delete(b.lookup, orderID)
}

// Amend mutates the resting order named by the event in place,
// returning the mutated order, or nil if the id is not active. An
// amend with qty == 0 is delegated to Cancel. Price and side changes
// preserve the order's original (TS, Seq) — no time-priority refresh.
func (b *OrderBook) Amend(ev types.AmendEvent) *types.RestingOrder {
	order, ok := b.lookup[ev.OrderID]
	if !ok {
		return nil
	}

	if ev.Qty != nil && *ev.Qty == 0 {
		b.Cancel(ev.OrderID)
		return nil
	}

	targetSide := order.Side
	if ev.Side != nil {
		targetSide = *ev.Side
	}

	priceChanged := ev.Price != nil && *ev.Price != order.Price
	sideChanged := targetSide != order.Side

	if priceChanged || sideChanged {
		removeFromLevel(b.levelsFor(order.Side), order)
		if ev.Price != nil {
			order.Price = *ev.Price
		}
		order.Side = targetSide

		levels := b.levelsFor(order.Side)
		level, ok := levels.Get(&PriceLevel{Price: order.Price})
		if !ok {
			level = &PriceLevel{Price: order.Price}
			levels.Set(level)
		}
		level.Orders = insertSorted(level.Orders, order)
	}

	if ev.Qty != nil {
		order.Qty = *ev.Qty
	}

	return order
}

// ReduceQty decrements the remaining quantity of order_id by qty,
// removing the order once it reaches zero or below. A no-op if the
// order is not active.
func (b *OrderBook) ReduceQty(orderID string, qty int64) {
	order, ok := b.lookup[orderID]
	if !ok {
		return
	}
	order.Qty -= qty
	if order.Qty <= 0 {
		b.Cancel(orderID)
	}
}

// BestBid returns the head of the highest-priced non-empty bid level,
// or nil if the bid side is empty.
func (b *OrderBook) BestBid() *types.RestingOrder {
	return headOf(b.Bids)
}

// BestAsk returns the head of the lowest-priced non-empty ask level,
// or nil if the ask side is empty.
func (b *OrderBook) BestAsk() *types.RestingOrder {
	return headOf(b.Asks)
}

func headOf(levels *priceLevels) *types.RestingOrder {
	level, ok := levels.Min()
	if !ok || len(level.Orders) == 0 {
		return nil
	}
	return level.Orders[0]
}

// IsActive reports whether order_id currently rests in the book.
func (b *OrderBook) IsActive(orderID string) bool {
	_, ok := b.lookup[orderID]
	return ok
}

// CheckStructure validates the structural invariants that must hold at
// every observable boundary regardless of event kind (spec.md §3): the
// lookup and price-level indexes agree, every level is non-empty and
// (ts, seq)-ordered, and no resting order has qty <= 0. It does not
// check for a crossed book — an amend is explicitly allowed to leave
// one (spec.md §9 "amend does not trigger matching").
func (b *OrderBook) CheckStructure() error {
	seen := make(map[string]bool, len(b.lookup))

	check := func(levels *priceLevels, side types.Side) error {
		var err error
		levels.Scan(func(level *PriceLevel) bool {
			if len(level.Orders) == 0 {
				err = fmt.Errorf("book: empty price level %d retained on %s side", level.Price, side)
				return false
			}
			for i, order := range level.Orders {
				if order.Qty <= 0 {
					err = fmt.Errorf("book: order %s has non-positive qty %d", order.OrderID, order.Qty)
					return false
				}
				if i > 0 && !level.Orders[i-1].Before(order) {
					err = fmt.Errorf("book: price level %d not ordered by (ts, seq)", level.Price)
					return false
				}
				if got, ok := b.lookup[order.OrderID]; !ok || got != order {
					err = fmt.Errorf("book: order %s in deque but not aliased in lookup", order.OrderID)
					return false
				}
				seen[order.OrderID] = true
			}
			return true
		})
		return err
	}

	if err := check(b.Bids, types.Buy); err != nil {
		return err
	}
	if err := check(b.Asks, types.Sell); err != nil {
		return err
	}
	if len(seen) != len(b.lookup) {
		return fmt.Errorf("book: lookup has entries not referenced by any price level")
	}

	return nil
}

// Crossed reports whether the best bid is at or above the best ask.
// A create that leaves the book crossed is a bug in the crossing loop
// (spec.md §8, invariant 4); an amend is permitted to leave the book
// crossed by spec.md §9's explicit design choice, so callers should
// only treat this as fatal after a create.
func (b *OrderBook) Crossed() bool {
	bestBid := b.BestBid()
	bestAsk := b.BestAsk()
	return bestBid != nil && bestAsk != nil && bestBid.Price >= bestAsk.Price
}

// CheckInvariants is CheckStructure plus the crossed-book check,
// convenient for tests that exercise only the well-behaved event
// sequences spec.md §8 describes.
func (b *OrderBook) CheckInvariants() error {
	if err := b.CheckStructure(); err != nil {
		return err
	}
	if b.Crossed() {
		bestBid, bestAsk := b.BestBid(), b.BestAsk()
		return fmt.Errorf("book: crossed book, best bid %d >= best ask %d", bestBid.Price, bestAsk.Price)
	}
	return nil
}
