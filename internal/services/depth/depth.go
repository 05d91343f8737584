// Package depth turns raw order-book depth into sorted, size-limited rows with a shared bar scale.
package depth

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/simex/internal/domain"
)

// DefaultSize is the number of rows shown per side.
const DefaultSize = 10

var hundred = decimal.NewFromInt(100)

// ErrZeroMaxAmount is returned when bar widths are requested for a book whose largest amount is zero.
var ErrZeroMaxAmount = errors.New("depth max amount is zero")

// Level single price level of the aggregated book.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
	Side   domain.Side
}

// Book aggregated depth. Both sides are ordered by price descending.
type Book struct {
	Bids      []Level
	Asks      []Level
	MaxAmount decimal.Decimal
}

// Row renderable depth row.
type Row struct {
	Price  string      `json:"price"`
	Amount string      `json:"amount"`
	Width  float64     `json:"width"`
	Side   domain.Side `json:"side"`
}

// Selection is emitted when a row is picked; it seeds a draft order.
type Selection struct {
	Price string      `json:"price"`
	Side  domain.Side `json:"side"`
}

// Aggregate keeps the n best bids and the n cheapest asks of raw.
// Asks are selected in ascending order and then displayed descending, so the
// level nearest the spread sits at the bottom of the ask column.
func Aggregate(raw domain.Depth, n int) (Book, error) {
	if n <= 0 {
		n = DefaultSize
	}

	bids, err := parseLevels(raw.Bids, domain.SideBid)
	if err != nil {
		return Book{}, err
	}
	asks, err := parseLevels(raw.Asks, domain.SideAsk)
	if err != nil {
		return Book{}, err
	}

	slices.SortStableFunc(bids, byPriceDesc)
	bids = bids[:min(n, len(bids))]

	slices.SortStableFunc(asks, func(a, b Level) int { return a.Price.Cmp(b.Price) })
	asks = asks[:min(n, len(asks))]
	slices.SortStableFunc(asks, byPriceDesc)

	book := Book{Bids: bids, Asks: asks, MaxAmount: decimal.Zero}
	for _, levels := range [][]Level{bids, asks} {
		for _, l := range levels {
			if l.Amount.GreaterThan(book.MaxAmount) {
				book.MaxAmount = l.Amount
			}
		}
	}

	return book, nil
}

// BarWidth returns the level amount as a percentage of the book's max amount.
func (b Book) BarWidth(l Level) (decimal.Decimal, error) {
	if b.MaxAmount.IsZero() {
		return decimal.Zero, ErrZeroMaxAmount
	}
	return l.Amount.Div(b.MaxAmount).Mul(hundred), nil
}

// Rows renders both sides with prices fixed to pricePlaces decimals.
func (b Book) Rows(pricePlaces int32) (bids, asks []Row, err error) {
	if len(b.Bids) == 0 && len(b.Asks) == 0 {
		return []Row{}, []Row{}, nil
	}

	render := func(levels []Level) ([]Row, error) {
		rows := make([]Row, 0, len(levels))
		for _, l := range levels {
			width, err := b.BarWidth(l)
			if err != nil {
				return nil, err
			}
			rows = append(rows, Row{
				Price:  l.Price.StringFixed(pricePlaces),
				Amount: l.Amount.String(),
				Width:  width.InexactFloat64(),
				Side:   l.Side,
			})
		}
		return rows, nil
	}

	if bids, err = render(b.Bids); err != nil {
		return nil, nil, err
	}
	if asks, err = render(b.Asks); err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

// Select builds the draft seed for a picked level.
func (l Level) Select(pricePlaces int32) Selection {
	return Selection{Price: l.Price.StringFixed(pricePlaces), Side: l.Side}
}

// Find returns the level at index i of side.
func (b Book) Find(side domain.Side, i int) (Level, bool) {
	levels := b.Bids
	if side == domain.SideAsk {
		levels = b.Asks
	}
	if i < 0 || i >= len(levels) {
		return Level{}, false
	}
	return levels[i], true
}

func byPriceDesc(a, b Level) int {
	return b.Price.Cmp(a.Price)
}

func parseLevels(points []domain.DepthPoint, side domain.Side) ([]Level, error) {
	levels := make([]Level, 0, len(points))
	for _, p := range points {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s price %q", side, p.Price)
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s amount %q", side, p.Amount)
		}
		levels = append(levels, Level{Price: price, Amount: amount, Side: side})
	}
	return levels, nil
}
