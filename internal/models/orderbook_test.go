package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	ob := NewOrderBook()

	id1, err := ob.Add(Buy, 10, price("100"), 1)
	require.NoError(t, err)
	id2, err := ob.Add(Sell, 10, price("101"), 1)
	require.NoError(t, err)

	require.Equal(t, int64(1), id1)
	require.Equal(t, int64(2), id2)
}

func TestAddRejectsNonPositiveQuantityAndPrice(t *testing.T) {
	ob := NewOrderBook()

	_, err := ob.Add(Buy, 0, price("100"), 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = ob.Add(Buy, 10, price("0"), 1)
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.Equal(t, "Orders: 0, Bid levels: 0, Ask levels: 0", ob.Status())
}

func TestCancelUnknownID(t *testing.T) {
	ob := NewOrderBook()
	err := ob.Cancel(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddThenCancelTwiceIsIdempotent(t *testing.T) {
	ob := NewOrderBook()
	id, err := ob.Add(Buy, 10, price("100"), 1)
	require.NoError(t, err)

	require.NoError(t, ob.Cancel(id))
	require.ErrorIs(t, ob.Cancel(id), ErrNotFound)
	require.Equal(t, "Orders: 0, Bid levels: 0, Ask levels: 0", ob.Status())
}

func TestMatchSimpleFullMatch(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Buy, 10, price("100"), 1)
	id2, _ := ob.Add(Sell, 10, price("100"), 2)

	trades := ob.Match()
	require.Len(t, trades, 1)
	require.Equal(t, TradeRecord{BuyID: id1, SellID: id2, Quantity: 10, Price: price("100")}, trades[0])
	require.Equal(t, "Orders: 0, Bid levels: 0, Ask levels: 0", ob.Status())
}

func TestMatchPartialFillBuyerLarger(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Buy, 10, price("100"), 1)
	id2, _ := ob.Add(Sell, 4, price("100"), 2)

	trades := ob.Match()
	require.Len(t, trades, 1)
	require.Equal(t, TradeRecord{BuyID: id1, SellID: id2, Quantity: 4, Price: price("100")}, trades[0])
	require.Equal(t, "Orders: 1, Bid levels: 1, Ask levels: 0", ob.Status())

	order, ok := ob.byID[id1]
	require.True(t, ok)
	require.Equal(t, int64(6), order.Remaining)
}

func TestMatchTimePriority(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Buy, 5, price("100"), 1)
	id2, _ := ob.Add(Buy, 5, price("100"), 1)
	id3, _ := ob.Add(Sell, 5, price("100"), 2)

	trades := ob.Match()
	require.Len(t, trades, 1)
	require.Equal(t, TradeRecord{BuyID: id1, SellID: id3, Quantity: 5, Price: price("100")}, trades[0])

	_, exists1 := ob.byID[id1]
	require.False(t, exists1)

	o2, exists2 := ob.byID[id2]
	require.True(t, exists2)
	require.Equal(t, int64(5), o2.Remaining)
}

func TestMatchPriceImprovementUsesRestingAskPrice(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Sell, 10, price("99"), 1)
	id2, _ := ob.Add(Buy, 10, price("100"), 2)

	trades := ob.Match()
	require.Len(t, trades, 1)
	require.Equal(t, TradeRecord{BuyID: id2, SellID: id1, Quantity: 10, Price: price("99")}, trades[0])
}

func TestCancelBeforeMatchNoOp(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Buy, 10, price("100"), 1)
	require.NoError(t, ob.Cancel(id1))
	_, _ = ob.Add(Sell, 10, price("100"), 2)

	trades := ob.Match()
	require.Empty(t, trades)
}

func TestMatchMultiLevelSweep(t *testing.T) {
	ob := NewOrderBook()
	id1, _ := ob.Add(Sell, 3, price("100"), 1)
	id2, _ := ob.Add(Sell, 3, price("101"), 1)
	id3, _ := ob.Add(Buy, 5, price("101"), 2)

	trades := ob.Match()
	require.Equal(t, []TradeRecord{
		{BuyID: id3, SellID: id1, Quantity: 3, Price: price("100")},
		{BuyID: id3, SellID: id2, Quantity: 2, Price: price("101")},
	}, trades)

	_, exists3 := ob.byID[id3]
	require.False(t, exists3)

	o2, exists2 := ob.byID[id2]
	require.True(t, exists2)
	require.Equal(t, int64(1), o2.Remaining)
}

func TestMatchOnNonCrossingBookIsNoOp(t *testing.T) {
	ob := NewOrderBook()
	_, _ = ob.Add(Buy, 10, price("99"), 1)
	_, _ = ob.Add(Sell, 10, price("100"), 2)

	trades := ob.Match()
	require.Empty(t, trades)
	require.Equal(t, "Orders: 2, Bid levels: 1, Ask levels: 1", ob.Status())
}

func TestAddThenCancelRestoresBook(t *testing.T) {
	ob := NewOrderBook()
	before := ob.Status()

	id, err := ob.Add(Buy, 10, price("100"), 1)
	require.NoError(t, err)
	require.NoError(t, ob.Cancel(id))

	require.Equal(t, before, ob.Status())
	require.Equal(t, "BIDS:\nASKS:\n", ob.Snapshot())
}

func TestSnapshotOrdering(t *testing.T) {
	ob := NewOrderBook()
	_, _ = ob.Add(Buy, 5, price("99"), 1)
	_, _ = ob.Add(Buy, 5, price("101"), 1)
	_, _ = ob.Add(Sell, 5, price("105"), 2)
	_, _ = ob.Add(Sell, 5, price("103"), 2)

	require.Equal(t,
		"BIDS:\n  101 : 5\n  99 : 5\nASKS:\n  103 : 5\n  105 : 5\n",
		ob.Snapshot(),
	)
}
