package models

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInvalidArgument and ErrNotFound are the two book-level error kinds; a
// session turns both into an ERROR reply without otherwise touching book
// state (the book commits nothing on either path).
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// OrderBook is the single in-memory book for one instrument. It owns every
// resting order and price level; callers only ever hold ids and price
// values, never live references. Every exported method is atomic with
// respect to every other: mu serializes the whole thing, matching the
// original single-mutex design rather than splitting bids/asks locks.
type OrderBook struct {
	mu sync.Mutex

	bids     bidHeap
	asks     askHeap
	bidIndex map[string]*PriceLevel
	askIndex map[string]*PriceLevel
	byID     map[int64]*Order

	nextID int64
}

// NewOrderBook returns an empty book ready to accept orders.
func NewOrderBook() *OrderBook {
	ob := &OrderBook{
		bidIndex: make(map[string]*PriceLevel),
		askIndex: make(map[string]*PriceLevel),
		byID:     make(map[int64]*Order),
	}
	heap.Init(&ob.bids)
	heap.Init(&ob.asks)
	return ob
}

func priceKey(p decimal.Decimal) string {
	return p.StringFixed(8)
}

// Add inserts a new resting order and returns its id. No matching is
// performed here; a separate call to Match drives all trades.
func (ob *OrderBook) Add(side Side, quantity int64, price decimal.Decimal, clientID int64) (int64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}
	if price.Sign() <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidArgument)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.nextID++
	o := &Order{
		ID:        ob.nextID,
		Side:      side,
		Price:     price,
		Remaining: quantity,
		ClientID:  clientID,
	}

	level := ob.levelFor(side, price, true)
	level.pushBack(o)
	ob.byID[o.ID] = o

	return o.ID, nil
}

// Cancel removes a resting order. The level it rested on is dropped
// synchronously if this was its last order.
func (ob *OrderBook) Cancel(id int64) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, ok := ob.byID[id]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrNotFound, id)
	}

	level := ob.levelFor(o.Side, o.Price, false)
	if level == nil || !level.remove(id) {
		return fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	delete(ob.byID, id)

	if level.empty() {
		ob.removeLevel(o.Side, level)
	}
	return nil
}

// Match runs price-time matching to quiescence: while the book is crossed,
// the resting heads of the best bid and best ask levels trade at the ask's
// price, the smaller side is fully consumed, and the larger keeps its
// remainder. Returns every trade produced, in execution order.
func (ob *OrderBook) Match() []TradeRecord {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var trades []TradeRecord

	for ob.bids.Len() > 0 && ob.asks.Len() > 0 {
		bestBid := ob.bids[0]
		bestAsk := ob.asks[0]
		if bestBid.Price.LessThan(bestAsk.Price) {
			break
		}

		b := bestBid.front()
		a := bestAsk.front()

		traded := b.Remaining
		if a.Remaining < traded {
			traded = a.Remaining
		}

		trades = append(trades, TradeRecord{
			BuyID:    b.ID,
			SellID:   a.ID,
			Quantity: traded,
			Price:    bestAsk.Price,
		})

		b.Remaining -= traded
		a.Remaining -= traded
		bestBid.Total -= traded
		bestAsk.Total -= traded

		if b.Remaining == 0 {
			bestBid.popFront()
			delete(ob.byID, b.ID)
		}
		if a.Remaining == 0 {
			bestAsk.popFront()
			delete(ob.byID, a.ID)
		}

		if bestBid.empty() {
			ob.removeLevel(Buy, bestBid)
		}
		if bestAsk.empty() {
			ob.removeLevel(Sell, bestAsk)
		}
	}

	return trades
}

// Snapshot renders the book as the textual BIDS:/ASKS: listing, bids
// descending by price, asks ascending.
func (ob *OrderBook) Snapshot() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	bids := append(bidHeap(nil), ob.bids...)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })

	asks := append(askHeap(nil), ob.asks...)
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })

	var b []byte
	b = append(b, "BIDS:\n"...)
	for _, lvl := range bids {
		b = append(b, fmt.Sprintf("  %s : %d\n", lvl.Price.String(), lvl.Total)...)
	}
	b = append(b, "ASKS:\n"...)
	for _, lvl := range asks {
		b = append(b, fmt.Sprintf("  %s : %d\n", lvl.Price.String(), lvl.Total)...)
	}
	return string(b)
}

// Status returns the one-line order/level-count summary.
func (ob *OrderBook) Status() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return fmt.Sprintf("Orders: %d, Bid levels: %d, Ask levels: %d",
		len(ob.byID), ob.bids.Len(), ob.asks.Len())
}

// levelFor returns the level for (side, price), creating and indexing it
// if create is true and it doesn't yet exist.
func (ob *OrderBook) levelFor(side Side, price decimal.Decimal, create bool) *PriceLevel {
	key := priceKey(price)
	if side == Buy {
		if lvl, ok := ob.bidIndex[key]; ok {
			return lvl
		}
		if !create {
			return nil
		}
		lvl := newPriceLevel(price)
		ob.bidIndex[key] = lvl
		heap.Push(&ob.bids, lvl)
		return lvl
	}
	if lvl, ok := ob.askIndex[key]; ok {
		return lvl
	}
	if !create {
		return nil
	}
	lvl := newPriceLevel(price)
	ob.askIndex[key] = lvl
	heap.Push(&ob.asks, lvl)
	return lvl
}

func (ob *OrderBook) removeLevel(side Side, lvl *PriceLevel) {
	key := priceKey(lvl.Price)
	if side == Buy {
		delete(ob.bidIndex, key)
		heap.Remove(&ob.bids, lvl.index)
		return
	}
	delete(ob.askIndex, key)
	heap.Remove(&ob.asks, lvl.index)
}
