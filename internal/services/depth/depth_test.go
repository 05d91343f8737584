package depth

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/simex/internal/domain"
)

func points(prices ...string) []domain.DepthPoint {
	out := make([]domain.DepthPoint, 0, len(prices))
	for i, p := range prices {
		out = append(out, domain.DepthPoint{Price: p, Amount: strconv.Itoa(i + 1)})
	}
	return out
}

func prices(levels []Level) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, l.Price.String())
	}
	return out
}

func TestAggregate_Ordering(t *testing.T) {
	raw := domain.Depth{
		Bids: points("9.5", "9.9", "9.1", "9.7", "9.8"),
		Asks: points("11.5", "10.1", "12", "10.4", "10.2"),
	}

	book, err := Aggregate(raw, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"9.9", "9.8", "9.7"}, prices(book.Bids))
	assert.Equal(t, []string{"10.4", "10.2", "10.1"}, prices(book.Asks), "cheapest asks, shown descending")
}

func TestAggregate_SortedForAnyInput(t *testing.T) {
	raw := domain.Depth{
		Bids: points("1", "3", "2", "3", "10", "0.5", "7", "7.25", "6", "4", "8", "9", "5"),
		Asks: points("20", "13", "15", "11", "19", "12", "18", "14", "17", "16", "10.5", "21"),
	}

	book, err := Aggregate(raw, DefaultSize)
	require.NoError(t, err)
	require.Len(t, book.Bids, DefaultSize)
	require.Len(t, book.Asks, DefaultSize)

	for _, side := range [][]Level{book.Bids, book.Asks} {
		for i := 1; i < len(side); i++ {
			assert.True(t, side[i-1].Price.GreaterThanOrEqual(side[i].Price))
		}
	}
	assert.Equal(t, "19", book.Asks[0].Price.String())
	assert.Equal(t, "10.5", book.Asks[len(book.Asks)-1].Price.String())
	assert.NotContains(t, prices(book.Asks), "20")
	assert.NotContains(t, prices(book.Asks), "21")
}

func TestAggregate_MaxAmountFromDisplayedLevels(t *testing.T) {
	raw := domain.Depth{
		Bids: []domain.DepthPoint{
			{Price: "10", Amount: "4"},
			{Price: "9", Amount: "2"},
			{Price: "1", Amount: "500"},
		},
		Asks: []domain.DepthPoint{
			{Price: "11", Amount: "6.5"},
			{Price: "12", Amount: "1"},
			{Price: "99", Amount: "1000"},
		},
	}

	book, err := Aggregate(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "6.5", book.MaxAmount.String())

	width, err := book.BarWidth(book.Bids[0])
	require.NoError(t, err)
	assert.True(t, width.Equal(decimal.NewFromInt(4).Div(decimal.RequireFromString("6.5")).Mul(decimal.NewFromInt(100))))
}

func TestBook_ZeroMaxAmount(t *testing.T) {
	book, err := Aggregate(domain.Depth{
		Bids: []domain.DepthPoint{{Price: "10", Amount: "0"}},
	}, DefaultSize)
	require.NoError(t, err)

	_, err = book.BarWidth(book.Bids[0])
	assert.ErrorIs(t, err, ErrZeroMaxAmount)

	_, _, err = book.Rows(2)
	assert.ErrorIs(t, err, ErrZeroMaxAmount)
}

func TestBook_Rows(t *testing.T) {
	book, err := Aggregate(domain.Depth{
		Bids: []domain.DepthPoint{{Price: "10", Amount: "1"}},
		Asks: []domain.DepthPoint{{Price: "10.2", Amount: "2"}},
	}, DefaultSize)
	require.NoError(t, err)

	bids, asks, err := book.Rows(2)
	require.NoError(t, err)
	assert.Equal(t, []Row{{Price: "10.00", Amount: "1", Width: 50, Side: domain.SideBid}}, bids)
	assert.Equal(t, []Row{{Price: "10.20", Amount: "2", Width: 100, Side: domain.SideAsk}}, asks)

	empty, err := Aggregate(domain.Depth{}, DefaultSize)
	require.NoError(t, err)
	bids, asks, err = empty.Rows(2)
	require.NoError(t, err)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}

func TestLevel_Select(t *testing.T) {
	book, err := Aggregate(domain.Depth{
		Bids: []domain.DepthPoint{{Price: "9.9", Amount: "1"}},
		Asks: []domain.DepthPoint{{Price: "10.25", Amount: "1"}},
	}, DefaultSize)
	require.NoError(t, err)

	bid, ok := book.Find(domain.SideBid, 0)
	require.True(t, ok)
	assert.Equal(t, Selection{Price: "9.90", Side: domain.SideBid}, bid.Select(2))

	ask, ok := book.Find(domain.SideAsk, 0)
	require.True(t, ok)
	assert.Equal(t, Selection{Price: "10.250", Side: domain.SideAsk}, ask.Select(3))

	_, ok = book.Find(domain.SideAsk, 5)
	assert.False(t, ok)
}

func TestAggregate_InvalidNumber(t *testing.T) {
	_, err := Aggregate(domain.Depth{Bids: []domain.DepthPoint{{Price: "abc", Amount: "1"}}}, DefaultSize)
	assert.Error(t, err)
}
