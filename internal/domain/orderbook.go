package domain

import (
	"github.com/shopspring/decimal"
)

const defaultPricePlaces = 2

// OrderBook static per-pair metadata returned by GET /orderbooks.
type OrderBook struct {
	Pair      string `json:"pair"`
	Base      string `json:"base"`
	Quote     string `json:"quote"`
	MinAmount string `json:"min_amount"`
	TickSize  string `json:"tick_size"`
}

// PricePlaces returns the number of decimal places implied by the tick size.
// Books without a parseable tick size render with two places.
func (b OrderBook) PricePlaces() int32 {
	tick, err := decimal.NewFromString(b.TickSize)
	if err != nil || !tick.IsPositive() {
		return defaultPricePlaces
	}
	if exp := tick.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// MinAmountDecimal returns the minimum order amount, zero when unknown.
func (b OrderBook) MinAmountDecimal() decimal.Decimal {
	min, err := decimal.NewFromString(b.MinAmount)
	if err != nil {
		return decimal.Zero
	}
	return min
}

// FindBook returns the book for the pair.
func FindBook(books []OrderBook, pair string) (OrderBook, bool) {
	for _, b := range books {
		if b.Pair == pair {
			return b, true
		}
	}
	return OrderBook{}, false
}
