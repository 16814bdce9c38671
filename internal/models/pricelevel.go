package models

import (
	"container/heap"

	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO queue of every live order resting at one price on
// one side, plus a cached sum of their remaining quantity. index is the
// level's current slot in its side's heap; it is maintained by heap.Fix /
// heap.Remove and has no meaning outside this package.
type PriceLevel struct {
	Price decimal.Decimal
	Queue []*Order
	Total int64
	index int
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price}
}

func (pl *PriceLevel) pushBack(o *Order) {
	pl.Queue = append(pl.Queue, o)
	pl.Total += o.Remaining
}

func (pl *PriceLevel) front() *Order {
	if len(pl.Queue) == 0 {
		return nil
	}
	return pl.Queue[0]
}

// popFront removes the head order, assumed already fully filled.
func (pl *PriceLevel) popFront() {
	pl.Queue = pl.Queue[1:]
}

// remove deletes the order with the given id from anywhere in the queue,
// decrementing Total by its current remaining. Used by cancel, which may
// target an order that isn't at the head.
func (pl *PriceLevel) remove(id int64) bool {
	for i, o := range pl.Queue {
		if o.ID == id {
			pl.Total -= o.Remaining
			pl.Queue = append(pl.Queue[:i], pl.Queue[i+1:]...)
			return true
		}
	}
	return false
}

func (pl *PriceLevel) empty() bool {
	return len(pl.Queue) == 0
}

// bidHeap is a max-heap on price: the best bid (highest price) is the root.
type bidHeap []*PriceLevel

func (h bidHeap) Len() int            { return len(h) }
func (h bidHeap) Less(i, j int) bool  { return h[i].Price.GreaterThan(h[j].Price) }
func (h bidHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *bidHeap) Push(x interface{}) {
	pl := x.(*PriceLevel)
	pl.index = len(*h)
	*h = append(*h, pl)
}
func (h *bidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	pl := old[n-1]
	old[n-1] = nil
	pl.index = -1
	*h = old[:n-1]
	return pl
}

// askHeap is a min-heap on price: the best ask (lowest price) is the root.
type askHeap []*PriceLevel

func (h askHeap) Len() int            { return len(h) }
func (h askHeap) Less(i, j int) bool  { return h[i].Price.LessThan(h[j].Price) }
func (h askHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *askHeap) Push(x interface{}) {
	pl := x.(*PriceLevel)
	pl.index = len(*h)
	*h = append(*h, pl)
}
func (h *askHeap) Pop() interface{} {
	old := *h
	n := len(old)
	pl := old[n-1]
	old[n-1] = nil
	pl.index = -1
	*h = old[:n-1]
	return pl
}

var (
	_ heap.Interface = (*bidHeap)(nil)
	_ heap.Interface = (*askHeap)(nil)
)
