// Package quote fetches best bid/ask quotes and derives the mid price.
package quote

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/simex/internal/domain"
)

const maxParallel = 8

// half keeps halving exact at any scale; Div stops at decimal.DivisionPrecision.
var half = decimal.New(5, -1)

// Fetcher loads a single quote.
type Fetcher interface {
	Quote(ctx context.Context, pair string) (domain.Quote, error)
}

// MidPrice returns (ask + bid) / 2 exactly, keeping at least the scale of the inputs.
func MidPrice(bidPrice, askPrice string) (string, error) {
	bid, err := decimal.NewFromString(bidPrice)
	if err != nil {
		return "", errors.Wrapf(err, "parse bid price %q", bidPrice)
	}
	ask, err := decimal.NewFromString(askPrice)
	if err != nil {
		return "", errors.Wrapf(err, "parse ask price %q", askPrice)
	}

	mid := ask.Add(bid).Mul(half)
	places := max(scale(bid), scale(ask), significantPlaces(mid))
	return mid.StringFixed(places), nil
}

func scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// significantPlaces counts decimals without trailing zeros.
func significantPlaces(d decimal.Decimal) int32 {
	s := d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}

// Derive returns q with MidPrice filled in.
func Derive(q domain.Quote) (domain.Quote, error) {
	mid, err := MidPrice(q.BidPrice, q.AskPrice)
	if err != nil {
		return q, errors.Wrapf(err, "quote %s", q.Pair)
	}
	q.MidPrice = mid
	return q, nil
}

// Result quotes keyed by pair and the per-pair failures of one batch.
type Result struct {
	Quotes map[string]domain.Quote
	Errors map[string]error
}

// Err joins the per-pair failures, nil when every pair succeeded.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	var first error
	for _, err := range r.Errors {
		first = err
		break
	}
	return errors.Wrapf(first, "%d of %d quotes failed", len(r.Errors), len(r.Errors)+len(r.Quotes))
}

// FetchAll fetches one quote per book in parallel. A failing pair is reported
// in Result.Errors and does not prevent the other pairs from updating.
func FetchAll(ctx context.Context, fetcher Fetcher, books []domain.OrderBook, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		mu  sync.Mutex
		res = Result{
			Quotes: make(map[string]domain.Quote, len(books)),
			Errors: make(map[string]error),
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for _, book := range books {
		pair := book.Pair
		g.Go(func() error {
			q, err := fetcher.Quote(gctx, pair)
			if err == nil {
				q.Pair = pair
				q, err = Derive(q)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("quote fetch failed", zap.String("pair", pair), zap.Error(err))
				res.Errors[pair] = err
				return nil
			}
			res.Quotes[pair] = q
			return nil
		})
	}
	_ = g.Wait()

	return res
}

// Merge applies fresh quotes over prev; pairs that failed keep their previous quote.
func Merge(prev map[string]domain.Quote, res Result) map[string]domain.Quote {
	merged := make(map[string]domain.Quote, len(prev)+len(res.Quotes))
	for pair, q := range prev {
		merged[pair] = q
	}
	for pair, q := range res.Quotes {
		merged[pair] = q
	}
	return merged
}
