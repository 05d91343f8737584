package market

import (
	"time"

	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/services/chart"
	"github.com/vadiminshakov/simex/internal/services/depth"
	"github.com/vadiminshakov/simex/internal/services/fetcher"
)

// Status loading and error flags of one stream.
type Status struct {
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DepthView aggregated depth of the active pair.
type DepthView struct {
	Status
	Bids      []depth.Row `json:"bids"`
	Asks      []depth.Row `json:"asks"`
	MaxAmount string      `json:"max_amount"`
}

// QuotesView quotes of every book with derived mid prices.
type QuotesView struct {
	Status
	Quotes []domain.Quote     `json:"quotes"`
	Failed map[string]string `json:"failed,omitempty"`
}

// ChartView normalized chart of the active pair.
type ChartView struct {
	Status
	chart.Series
}

// View renderable market snapshot.
type View struct {
	Pair        string             `json:"pair"`
	Book        *domain.OrderBook  `json:"book,omitempty"`
	Books       []domain.OrderBook `json:"books"`
	BooksStatus Status             `json:"books_status"`
	Quotes      QuotesView         `json:"quotes"`
	Depth       DepthView          `json:"depth"`
	Chart       ChartView          `json:"chart"`
}

// View derives the renderable snapshot from the current stream states.
func (s *Service) View() View {
	pair := s.ActivePair()

	books := s.books.State()
	view := View{
		Pair:        pair,
		Books:       books.Data,
		BooksStatus: status(books),
	}
	if view.Books == nil {
		view.Books = []domain.OrderBook{}
	}
	if book, ok := domain.FindBook(books.Data, pair); ok {
		view.Book = &book
	}

	quotes := s.quotes.State()
	view.Quotes = QuotesView{
		Status: status(quotes),
		Quotes: sortedQuotes(books.Data, quotes.Data.Quotes),
		Failed: quotes.Data.Failed,
	}

	view.Depth = s.depthView(pair)

	charts := s.charts.State()
	view.Chart = ChartView{
		Status: status(charts),
		Series: chart.Build(charts.Data, pair, s.cfg.EMAPeriod),
	}

	return view
}

func (s *Service) depthView(pair string) DepthView {
	state := s.depth.State()
	view := DepthView{
		Status:    status(state),
		Bids:      []depth.Row{},
		Asks:      []depth.Row{},
		MaxAmount: "0",
	}
	if state.Data.Pair != pair {
		view.Loading = true
		view.Error = ""
		return view
	}

	book, err := depth.Aggregate(state.Data.Depth, s.cfg.DepthSize)
	if err != nil {
		view.Error = err.Error()
		return view
	}
	bids, asks, err := book.Rows(s.pricePlaces())
	if err != nil {
		view.Error = err.Error()
		return view
	}

	view.Bids = bids
	view.Asks = asks
	view.MaxAmount = book.MaxAmount.String()
	return view
}

func status[T any](state fetcher.State[T]) Status {
	st := Status{Loading: state.Loading, UpdatedAt: state.UpdatedAt}
	if state.Err != nil {
		st.Error = domain.UserMessage(state.Err)
	}
	return st
}
