package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Pair
		shouldErr bool
	}{
		{name: "valid", input: "NTN-USDC", expected: Pair{Base: "NTN", Quote: "USDC"}},
		{name: "surrounding spaces", input: " ATN-USDC ", expected: Pair{Base: "ATN", Quote: "USDC"}},
		{name: "underscore", input: "NTN_USDC", shouldErr: true},
		{name: "missing quote", input: "NTN-", shouldErr: true},
		{name: "empty", input: "", shouldErr: true},
		{name: "too many parts", input: "A-B-C", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := ParsePair(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pair)
			assert.Equal(t, tt.expected.Base+"-"+tt.expected.Quote, pair.String())
		})
	}
}

func TestOrderBook_PricePlaces(t *testing.T) {
	tests := []struct {
		tick     string
		expected int32
	}{
		{tick: "0.01", expected: 2},
		{tick: "0.0001", expected: 4},
		{tick: "1", expected: 0},
		{tick: "", expected: 2},
		{tick: "abc", expected: 2},
		{tick: "0", expected: 2},
	}
	for _, tt := range tests {
		t.Run(tt.tick, func(t *testing.T) {
			assert.Equal(t, tt.expected, OrderBook{TickSize: tt.tick}.PricePlaces())
		})
	}
}

func TestFindBook(t *testing.T) {
	books := []OrderBook{{Pair: "NTN-USDC", MinAmount: "0.5"}, {Pair: "ATN-USDC"}}

	book, ok := FindBook(books, "NTN-USDC")
	require.True(t, ok)
	assert.Equal(t, "0.5", book.MinAmountDecimal().String())

	_, ok = FindBook(books, "BTC-USDC")
	assert.False(t, ok)
}

func TestOrder_LimitOrder(t *testing.T) {
	o := Order{OrderID: 7, Pair: "NTN-USDC", Price: "10.5", Amount: "3", Side: "ask", Status: OrderStatusOpen}
	assert.Equal(t, LimitOrder{Pair: "NTN-USDC", Price: "10.5", Amount: "3", Side: SideAsk}, o.LimitOrder())
}

func TestUserMessage(t *testing.T) {
	apiErr := &APIError{Op: "place order", StatusCode: 400, Message: "insufficient balance"}
	assert.Equal(t, "insufficient balance", UserMessage(errors.Wrap(apiErr, "submit")))

	netErr := &NetworkError{Op: "depth", Err: errors.New("connection refused")}
	assert.Contains(t, UserMessage(netErr), "connection refused")
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, OrderStatusPartial.IsValid())
	assert.False(t, OrderStatus("filled").IsValid())
}
