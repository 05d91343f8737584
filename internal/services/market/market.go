// Package market keeps the reconciled market state of the exchange: order
// books, quotes, depth of the active pair and chart series.
package market

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/events"
	"github.com/vadiminshakov/simex/internal/services/depth"
	"github.com/vadiminshakov/simex/internal/services/fetcher"
	"github.com/vadiminshakov/simex/internal/services/quote"
	"github.com/vadiminshakov/simex/internal/services/trading"
	"github.com/vadiminshakov/simex/pkg/retrier"
)

// Client exchange endpoints used by the market service.
type Client interface {
	OrderBooks(ctx context.Context) ([]domain.OrderBook, error)
	Depth(ctx context.Context, pair string) (domain.Depth, error)
	Quote(ctx context.Context, pair string) (domain.Quote, error)
	Charts(ctx context.Context) ([]domain.ChartItem, error)
}

// Config polling cadence and presentation settings.
type Config struct {
	DefaultPair   string
	DepthSize     int
	DepthInterval time.Duration
	QuoteInterval time.Duration
	ChartInterval time.Duration
	EMAPeriod     int
	Retrier       *retrier.Retrier
}

type depthSnapshot struct {
	Pair  string
	Depth domain.Depth
}

type quoteSet struct {
	Quotes map[string]domain.Quote
	Failed map[string]string
}

// Service owns the active pair and the market data streams keyed off it.
type Service struct {
	client      Client
	cfg         Config
	coordinator *trading.Coordinator
	activity    *activity.Log
	logger      *zap.Logger

	books  *fetcher.Resource[[]domain.OrderBook]
	quotes *fetcher.Resource[quoteSet]
	depth  *fetcher.Resource[depthSnapshot]
	charts *fetcher.Resource[[]domain.ChartItem]

	tracker *fetcher.Tracker
	updates *events.Broadcaster[string]

	mu   sync.RWMutex
	pair string
}

// NewService creates the market service. Pair changes are forwarded to coordinator.
func NewService(client Client, coordinator *trading.Coordinator, cfg Config, log *activity.Log, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = activity.NewLog(logger, 0)
	}
	if cfg.DepthSize <= 0 {
		cfg.DepthSize = depth.DefaultSize
	}
	if cfg.Retrier == nil {
		cfg.Retrier = retrier.New(
			retrier.WithRetryIf(retryable),
			retrier.WithOnRetry(func(attempt int, err error, wait time.Duration) {
				logger.Warn("order books fetch failed, retrying",
					zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
			}),
		)
	}

	s := &Service{
		client:      client,
		cfg:         cfg,
		coordinator: coordinator,
		activity:    log,
		logger:      logger,
		tracker:     fetcher.NewTracker(),
		updates:     events.NewBroadcaster[string](16),
	}

	s.books = fetcher.New("orderbooks", client.OrderBooks)
	s.quotes = fetcher.New("quotes", s.fetchQuotes)
	s.depth = fetcher.New[depthSnapshot]("depth", nil)
	s.charts = fetcher.New("charts", client.Charts)

	s.books.OnChange(func(fetcher.State[[]domain.OrderBook]) { s.updates.Publish("books") })
	s.quotes.OnChange(func(fetcher.State[quoteSet]) { s.updates.Publish("quotes") })
	s.depth.OnChange(func(fetcher.State[depthSnapshot]) { s.updates.Publish("depth") })
	s.charts.OnChange(func(fetcher.State[[]domain.ChartItem]) { s.updates.Publish("chart") })

	return s
}

// retryable reports whether an error may succeed on retry; client errors never do.
func retryable(err error) bool {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// Init loads the book list with retries and activates the configured pair,
// falling back to the first book.
func (s *Service) Init(ctx context.Context) error {
	books, err := retrier.DoWithData(s.cfg.Retrier, ctx, func(ctx context.Context) ([]domain.OrderBook, error) {
		books, err := s.client.OrderBooks(ctx)
		if err != nil {
			s.logger.Warn("orderbooks fetch failed, retrying", zap.Error(err))
		}
		return books, err
	})
	if err != nil {
		s.activity.Fail(err, domain.LevelCritical)
		return errors.Wrap(err, "load orderbooks")
	}
	s.books.Set(books)
	s.activity.Record("order books loaded")

	if len(books) == 0 {
		return errors.New("exchange returned no order books")
	}

	pair := books[0].Pair
	if _, ok := domain.FindBook(books, s.cfg.DefaultPair); ok {
		pair = s.cfg.DefaultPair
	} else if s.cfg.DefaultPair != "" {
		s.logger.Warn("default pair is not listed, using first book",
			zap.String("default_pair", s.cfg.DefaultPair), zap.String("pair", pair))
	}

	return s.SetActivePair(ctx, pair)
}

// Run polls depth, quotes and charts independently until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fetcher.Every(gctx, s.cfg.DepthInterval, s.RefreshDepth, s.pollError("depth"))
		return nil
	})
	g.Go(func() error {
		fetcher.Every(gctx, s.cfg.QuoteInterval, s.RefreshQuotes, s.pollError("quotes"))
		return nil
	})
	g.Go(func() error {
		fetcher.Every(gctx, s.cfg.ChartInterval, s.RefreshCharts, s.pollError("chart"))
		return nil
	})

	return g.Wait()
}

func (s *Service) pollError(stream string) func(error) {
	return func(err error) {
		s.logger.Warn("market refresh failed", zap.String("stream", stream), zap.Error(err))
		s.activity.Record(stream + " refresh failed: " + domain.UserMessage(err))
	}
}

// ActivePair returns the pair every depth fetch is keyed off.
func (s *Service) ActivePair() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Book returns the metadata of pair.
func (s *Service) Book(pair string) (domain.OrderBook, bool) {
	return domain.FindBook(s.books.State().Data, pair)
}

// SetActivePair switches the active pair, resets the order draft and fetches
// depth for the new pair. Responses still in flight for the previous pair are discarded.
func (s *Service) SetActivePair(ctx context.Context, pair string) error {
	if _, ok := s.Book(pair); !ok {
		return &domain.ValidationError{Field: "pair", Value: pair, Reason: "unknown pair"}
	}

	s.mu.Lock()
	prev := s.pair
	s.pair = pair
	s.mu.Unlock()

	s.tracker.Invalidate()
	s.coordinator.Dispatch(trading.SetActivePair{Pair: pair})
	s.logger.Info("active pair changed", zap.String("from", prev), zap.String("to", pair))
	s.activity.Record("active pair: " + pair)
	s.updates.Publish("pair")

	return s.RefreshDepth(ctx)
}

// RefreshDepth fetches depth for the active pair and applies it only if the
// pair is still active and no newer depth request was started.
func (s *Service) RefreshDepth(ctx context.Context) error {
	pair := s.ActivePair()
	if pair == "" {
		return nil
	}

	token := s.tracker.Begin(ctx, pair)
	defer token.Done()

	fetch := func(ctx context.Context) (depthSnapshot, error) {
		d, err := s.client.Depth(ctx, token.Key())
		return depthSnapshot{Pair: token.Key(), Depth: d}, err
	}
	current := func() bool {
		return token.Current() && s.ActivePair() == token.Key()
	}

	err := s.depth.RefreshGuarded(token.Context(), fetch, current)
	if errors.Is(err, fetcher.ErrStale) {
		s.logger.Debug("stale depth discarded", zap.String("pair", token.Key()))
	}
	return err
}

// RefreshQuotes fetches quotes of every book.
func (s *Service) RefreshQuotes(ctx context.Context) error {
	return s.quotes.Refresh(ctx)
}

// RefreshCharts fetches the chart feed.
func (s *Service) RefreshCharts(ctx context.Context) error {
	return s.charts.Refresh(ctx)
}

// fetchQuotes fetches every pair independently; pairs that fail keep their previous quote.
func (s *Service) fetchQuotes(ctx context.Context) (quoteSet, error) {
	books := s.books.State().Data
	res := quote.FetchAll(ctx, s.client, books, s.logger)

	prev := s.quotes.State().Data
	set := quoteSet{
		Quotes: quote.Merge(prev.Quotes, res),
		Failed: make(map[string]string, len(res.Errors)),
	}
	for pair, err := range res.Errors {
		set.Failed[pair] = domain.UserMessage(err)
	}

	if len(books) > 0 && len(res.Quotes) == 0 && len(res.Errors) > 0 {
		return quoteSet{}, res.Err()
	}
	return set, nil
}

// SelectLevel picks the depth row at index on side and makes it the
// authoritative price and side of the order draft.
func (s *Service) SelectLevel(side domain.Side, index int) (depth.Selection, error) {
	if !side.IsValid() {
		return depth.Selection{}, &domain.ValidationError{Field: "side", Value: string(side), Reason: "must be bid or ask"}
	}

	book, err := s.aggregated()
	if err != nil {
		return depth.Selection{}, err
	}
	level, ok := book.Find(side, index)
	if !ok {
		return depth.Selection{}, &domain.ValidationError{Field: "index", Reason: "no such depth row"}
	}

	selection := level.Select(s.pricePlaces())
	s.coordinator.Dispatch(trading.SelectLevel{Price: selection.Price, Side: selection.Side})
	return selection, nil
}

func (s *Service) aggregated() (depth.Book, error) {
	snap := s.depth.State().Data
	if snap.Pair != s.ActivePair() {
		return depth.Book{}, nil
	}
	return depth.Aggregate(snap.Depth, s.cfg.DepthSize)
}

func (s *Service) pricePlaces() int32 {
	book, _ := s.Book(s.ActivePair())
	return book.PricePlaces()
}

// Subscribe returns a channel receiving the name of every stream that changed.
func (s *Service) Subscribe() chan string {
	return s.updates.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (s *Service) Unsubscribe(ch chan string) {
	s.updates.Unsubscribe(ch)
}

func sortedQuotes(books []domain.OrderBook, quotes map[string]domain.Quote) []domain.Quote {
	out := make([]domain.Quote, 0, len(quotes))
	for _, b := range books {
		if q, ok := quotes[b.Pair]; ok {
			out = append(out, q)
		}
	}
	return out
}
