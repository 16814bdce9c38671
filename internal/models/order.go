package models

import "github.com/shopspring/decimal"

// Side identifies which book side an order rests on.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Order is a single resting limit order. ID, Side, Price and ClientID are
// fixed at creation; Remaining is the only field Match/Cancel ever mutate.
type Order struct {
	ID        int64
	Side      Side
	Price     decimal.Decimal
	Remaining int64
	ClientID  int64
}

// TradeRecord is one fill produced by a single Match call.
type TradeRecord struct {
	BuyID    int64
	SellID   int64
	Quantity int64
	Price    decimal.Decimal
}
