// Package orders submits limit orders, cancels them and keeps the order history.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/fetcher"
	"github.com/vadiminshakov/simex/internal/services/trading"
)

// GroupAll is the history group holding every order.
const GroupAll = "all"

// Client exchange operations used by the pipeline.
type Client interface {
	Orders(ctx context.Context, apiKey string) ([]domain.Order, error)
	PlaceOrder(ctx context.Context, apiKey string, order domain.LimitOrder) (domain.LimitOrderDocket, error)
	CancelOrder(ctx context.Context, apiKey string, orderID int64) error
}

// BookLookup resolves the order book of a pair.
type BookLookup func(pair string) (domain.OrderBook, bool)

// History orders grouped by status; GroupAll holds every order.
type History struct {
	Groups    map[string][]domain.Order `json:"groups"`
	Loading   bool                      `json:"loading"`
	Error     string                    `json:"error,omitempty"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Service order submission pipeline and order history.
type Service struct {
	client      Client
	coordinator *trading.Coordinator
	apiKey      func() string
	books       BookLookup
	activity    *activity.Log
	logger      *zap.Logger
	history     *fetcher.Resource[[]domain.Order]
}

// NewService wires the pipeline. apiKey returns the current credential.
func NewService(
	client Client,
	coordinator *trading.Coordinator,
	apiKey func() string,
	books BookLookup,
	log *activity.Log,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = activity.NewLog(logger, 0)
	}
	if books == nil {
		books = func(string) (domain.OrderBook, bool) { return domain.OrderBook{}, false }
	}

	return &Service{
		client:      client,
		coordinator: coordinator,
		apiKey:      apiKey,
		books:       books,
		activity:    log,
		logger:      logger,
		history:     fetcher.NewKeyed("orders", client.Orders, apiKey),
	}
}

// Submit validates the current draft and posts it as a limit order.
// On success the docket becomes active and the draft is cleared; on failure
// the draft is left intact and the error is surfaced.
func (s *Service) Submit(ctx context.Context) (domain.LimitOrderDocket, error) {
	key := s.apiKey()
	if key == "" {
		s.activity.Fail(domain.ErrNoCredentials, domain.LevelWarning)
		return domain.LimitOrderDocket{}, domain.ErrNoCredentials
	}

	state := s.coordinator.State()
	book, _ := s.books(state.Pair)

	sub, err := s.coordinator.Commit(book.MinAmountDecimal())
	if err != nil {
		return domain.LimitOrderDocket{}, err
	}

	docket, err := s.client.PlaceOrder(ctx, key, sub.Order)
	if err != nil {
		s.coordinator.FailSubmission(sub)
		s.activity.Fail(err, domain.LevelCritical)
		return domain.LimitOrderDocket{}, errors.Wrapf(err, "submit %s", sub.Order)
	}

	s.activity.Clear()
	if s.coordinator.ApplyDocket(sub, docket) {
		s.activity.Record(fmt.Sprintf("order %d placed: %s", docket.OrderID, sub.Order))
	}
	s.refreshAfterChange(ctx)
	return docket, nil
}

// Cancel cancels the active docket's order. The docket is kept when the
// exchange rejects the cancellation so it can be retried.
func (s *Service) Cancel(ctx context.Context) error {
	docket, ok := s.coordinator.Docket()
	if !ok {
		return domain.ErrNoDocket
	}
	return s.CancelOrder(ctx, docket.OrderID)
}

// CancelOrder cancels any order by id.
func (s *Service) CancelOrder(ctx context.Context, orderID int64) error {
	key := s.apiKey()
	if key == "" {
		s.activity.Fail(domain.ErrNoCredentials, domain.LevelWarning)
		return domain.ErrNoCredentials
	}

	if err := s.client.CancelOrder(ctx, key, orderID); err != nil {
		s.activity.Fail(err, domain.LevelCritical)
		return errors.Wrapf(err, "cancel order %d", orderID)
	}

	s.activity.Clear()
	s.coordinator.ClearDocket(orderID)
	s.activity.Record(fmt.Sprintf("order %d cancelled", orderID))
	s.refreshAfterChange(ctx)
	return nil
}

// History refreshes the order list and returns it grouped by status.
func (s *Service) History(ctx context.Context) (History, error) {
	if s.apiKey() == "" {
		return History{}, domain.ErrNoCredentials
	}
	err := s.history.Refresh(ctx)
	return s.Snapshot(), err
}

// Snapshot returns the last fetched history without refreshing.
func (s *Service) Snapshot() History {
	state := s.history.State()
	h := History{
		Groups:    Group(state.Data),
		Loading:   state.Loading,
		UpdatedAt: state.UpdatedAt,
	}
	if state.Err != nil {
		h.Error = domain.UserMessage(state.Err)
	}
	return h
}

// Find returns a previously fetched order.
func (s *Service) Find(orderID int64) (domain.Order, bool) {
	for _, o := range s.history.State().Data {
		if o.OrderID == orderID {
			return o, true
		}
	}
	return domain.Order{}, false
}

// Repeat re-submits the pair, price, amount and side of order.
func (s *Service) Repeat(ctx context.Context, order domain.Order) (domain.LimitOrderDocket, error) {
	key := s.apiKey()
	if key == "" {
		return domain.LimitOrderDocket{}, domain.ErrNoCredentials
	}

	limit := order.LimitOrder()
	if !limit.Side.IsValid() {
		return domain.LimitOrderDocket{}, &domain.ValidationError{Field: "side", Value: order.Side, Reason: "must be bid or ask"}
	}

	docket, err := s.client.PlaceOrder(ctx, key, limit)
	if err != nil {
		s.activity.Fail(err, domain.LevelCritical)
		return domain.LimitOrderDocket{}, errors.Wrapf(err, "repeat order %d", order.OrderID)
	}

	s.activity.Record(fmt.Sprintf("order %d repeated as %d: %s", order.OrderID, docket.OrderID, limit))
	s.refreshAfterChange(ctx)
	return docket, nil
}

// Poll refreshes the history every interval until ctx is done.
func (s *Service) Poll(ctx context.Context, interval time.Duration) {
	s.history.Poll(ctx, interval, func(err error) {
		s.logger.Warn("orders refresh failed", zap.Error(err))
		s.activity.Record("orders refresh failed: " + domain.UserMessage(err))
	})
}

func (s *Service) refreshAfterChange(ctx context.Context) {
	if err := s.history.Refresh(ctx); err != nil {
		s.logger.Warn("orders refresh failed", zap.Error(err))
	}
}

// Group buckets orders by status. Every known status has a (possibly empty) group.
func Group(orders []domain.Order) map[string][]domain.Order {
	groups := make(map[string][]domain.Order, len(domain.OrderStatuses)+1)
	groups[GroupAll] = append([]domain.Order{}, orders...)
	for _, status := range domain.OrderStatuses {
		groups[string(status)] = []domain.Order{}
	}
	for _, o := range orders {
		if o.Status.IsValid() {
			groups[string(o.Status)] = append(groups[string(o.Status)], o)
		}
	}
	return groups
}
