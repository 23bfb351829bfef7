package domain

import (
	"encoding/json"
)

// fixedOrderAmount stands in for a real price lookup. It is in minor currency units.
const fixedOrderAmount int64 = 1400

// applicationFeeDivisor takes a 10% platform cut.
const applicationFeeDivisor int64 = 10

// LineItem is whatever the client sent for one item. It is never read for a price.
type LineItem = json.RawMessage

type Order struct {
	Items                []LineItem
	Currency             string
	Destination          string
	Amount               int64
	ApplicationFeeAmount int64
}

// NewOrder prices an order on the server side.
func NewOrder(items []LineItem, currency, destination string) Order {
	amount := CalculateOrderAmount(items)
	return Order{
		Items:                items,
		Currency:             currency,
		Destination:          destination,
		Amount:               amount,
		ApplicationFeeAmount: CalculateApplicationFeeAmount(amount),
	}
}

// CalculateOrderAmount returns the order total in minor units.
// Replace the constant with a real calculation over items; the total must stay
// computed here so the client cannot change it.
func CalculateOrderAmount(_ []LineItem) int64 {
	return fixedOrderAmount
}

// CalculateApplicationFeeAmount returns floor(amount * 0.1).
func CalculateApplicationFeeAmount(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / applicationFeeDivisor
}
