package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/types"
)

func create(id string, side types.Side, price, qty, ts, seq int64) types.CreateEvent {
	return types.CreateEvent{
		BaseEvent: types.BaseEvent{
			Kind:    types.EventCreate,
			TS:      ts,
			Seq:     seq,
			Symbol:  types.ABC,
			OrderID: id,
		},
		Side:  side,
		Price: price,
		Qty:   qty,
	}
}

func TestAdd_PriceTimePriority(t *testing.T) {
	b := book.New(types.ABC)

	b.Add(create("b1", types.Buy, 100, 5, 1000, 1))
	b.Add(create("b2", types.Buy, 101, 5, 1001, 2))
	b.Add(create("b3", types.Buy, 100, 5, 1002, 3))

	best := b.BestBid()
	require.NotNil(t, best)
	assert.Equal(t, "b2", best.OrderID)

	level, ok := b.Bids.Get(&book.PriceLevel{Price: 100})
	require.True(t, ok)
	require.Len(t, level.Orders, 2)
	assert.Equal(t, "b1", level.Orders[0].OrderID)
	assert.Equal(t, "b3", level.Orders[1].OrderID)
}

func TestCancel_RemovesEmptyLevel(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("s1", types.Sell, 101, 10, 1000, 1))

	assert.True(t, b.IsActive("s1"))
	b.Cancel("s1")
	assert.False(t, b.IsActive("s1"))
	assert.Nil(t, b.BestAsk())

	_, ok := b.Asks.Get(&book.PriceLevel{Price: 101})
	assert.False(t, ok)
}

func TestCancel_UnknownIsNoOp(t *testing.T) {
	b := book.New(types.ABC)
	b.Cancel("missing")
	b.Cancel("missing")
	assert.NoError(t, b.CheckInvariants())
}

func TestAmend_QtyZeroEqualsCancel(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("s1", types.Sell, 101, 10, 1000, 1))

	zero := int64(0)
	got := b.Amend(types.AmendEvent{
		BaseEvent: types.BaseEvent{Kind: types.EventAmend, TS: 1010, Seq: 2, Symbol: types.ABC, OrderID: "s1"},
		Qty:       &zero,
	})

	assert.Nil(t, got)
	assert.False(t, b.IsActive("s1"))
}

func TestAmend_PriceMovesLevelsButKeepsTimePriority(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("b1", types.Buy, 100, 10, 1000, 1))

	newPrice := int64(105)
	got := b.Amend(types.AmendEvent{
		BaseEvent: types.BaseEvent{Kind: types.EventAmend, TS: 1010, Seq: 2, Symbol: types.ABC, OrderID: "b1"},
		Price:     &newPrice,
	})

	require.NotNil(t, got)
	assert.EqualValues(t, 105, got.Price)
	assert.EqualValues(t, 10, got.Qty)
	assert.EqualValues(t, 1000, got.TS) // original priority retained
	assert.EqualValues(t, 1, got.Seq)

	_, ok := b.Bids.Get(&book.PriceLevel{Price: 100})
	assert.False(t, ok)
	level, ok := b.Bids.Get(&book.PriceLevel{Price: 105})
	require.True(t, ok)
	assert.Len(t, level.Orders, 1)
}

func TestAmend_UnknownIsNoOp(t *testing.T) {
	b := book.New(types.ABC)
	qty := int64(5)
	got := b.Amend(types.AmendEvent{
		BaseEvent: types.BaseEvent{Kind: types.EventAmend, OrderID: "missing"},
		Qty:       &qty,
	})
	assert.Nil(t, got)
}

func TestAmend_AcrossSides(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("b1", types.Buy, 100, 10, 1000, 1))

	sell := types.Sell
	got := b.Amend(types.AmendEvent{
		BaseEvent: types.BaseEvent{Kind: types.EventAmend, TS: 1010, Seq: 2, Symbol: types.ABC, OrderID: "b1"},
		Side:      &sell,
	})

	require.NotNil(t, got)
	assert.Equal(t, types.Sell, got.Side)
	assert.Nil(t, b.BestBid())
	assert.Equal(t, "b1", b.BestAsk().OrderID)
}

func TestReduceQty_RemovesOnFullConsumption(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("s1", types.Sell, 100, 5, 1000, 1))

	b.ReduceQty("s1", 3)
	assert.True(t, b.IsActive("s1"))
	assert.EqualValues(t, 2, b.BestAsk().Qty)

	b.ReduceQty("s1", 2)
	assert.False(t, b.IsActive("s1"))
}

func TestReduceQty_UnknownIsNoOp(t *testing.T) {
	b := book.New(types.ABC)
	b.ReduceQty("missing", 5)
	assert.NoError(t, b.CheckInvariants())
}

func TestBestBidBestAsk_EmptySides(t *testing.T) {
	b := book.New(types.ABC)
	assert.Nil(t, b.BestBid())
	assert.Nil(t, b.BestAsk())
}

func TestCheckInvariants_HoldsAcrossMixedActivity(t *testing.T) {
	b := book.New(types.ABC)
	b.Add(create("b1", types.Buy, 100, 5, 1000, 1))
	b.Add(create("b2", types.Buy, 100, 7, 1001, 2))
	b.Add(create("s1", types.Sell, 102, 4, 1002, 3))
	b.ReduceQty("b1", 2)
	assert.NoError(t, b.CheckInvariants())
}
