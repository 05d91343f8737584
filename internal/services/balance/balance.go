// Package balance polls account balances while an API key is available.
package balance

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/fetcher"
)

const displayPlaces = 3

// Client loads balances for an API key.
type Client interface {
	Balances(ctx context.Context, apiKey string) ([]domain.Balance, error)
}

// Row balance formatted for display.
type Row struct {
	Symbol    string `json:"symbol"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}

// View renderable balances state.
type View struct {
	Rows      []Row     `json:"rows"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service keeps the balances of the current account.
type Service struct {
	client   Client
	apiKey   func() string
	resource *fetcher.Resource[[]domain.Balance]
	activity *activity.Log
	logger   *zap.Logger
}

// NewService creates the balance poller. apiKey returns the current credential.
func NewService(client Client, apiKey func() string, log *activity.Log, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = activity.NewLog(logger, 0)
	}
	return &Service{
		client:   client,
		apiKey:   apiKey,
		resource: fetcher.New[[]domain.Balance]("balances", nil),
		activity: log,
		logger:   logger,
	}
}

// Refresh fetches balances now. Without an API key it does nothing.
// A response is dropped with fetcher.ErrStale when the key changed while it was in flight.
func (s *Service) Refresh(ctx context.Context) error {
	key := s.apiKey()
	if key == "" {
		return nil
	}

	fetch := func(ctx context.Context) ([]domain.Balance, error) {
		return s.client.Balances(ctx, key)
	}
	return s.resource.RefreshGuarded(ctx, fetch, func() bool { return s.apiKey() == key })
}

// Run polls every interval and refreshes immediately whenever the credentials
// change. It returns when ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration, changes <-chan domain.Credentials) {
	s.refresh(ctx)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.refresh(ctx)
		case creds, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if creds.APIKey == "" {
				s.resource.Set(nil)
				continue
			}
			s.refresh(ctx)
		}
	}
}

// View returns the balances formatted for display.
func (s *Service) View() View {
	state := s.resource.State()
	rows := make([]Row, 0, len(state.Data))
	for _, b := range state.Data {
		rows = append(rows, Row{
			Symbol:    b.Symbol,
			Balance:   Format(b.Balance),
			Available: Format(b.Available),
		})
	}

	view := View{Rows: rows, Loading: state.Loading, UpdatedAt: state.UpdatedAt}
	if state.Err != nil {
		view.Error = domain.UserMessage(state.Err)
	}
	return view
}

func (s *Service) refresh(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil && !errors.Is(err, fetcher.ErrStale) && ctx.Err() == nil {
		s.logger.Warn("balances refresh failed", zap.Error(err))
		s.activity.Record("balances refresh failed: " + domain.UserMessage(err))
	}
}

// Format renders an amount with three decimals; unparsable values are returned unchanged.
func Format(v string) string {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	return d.StringFixed(displayPlaces)
}
