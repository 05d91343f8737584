package trading

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/events"
)

// Submission token of one in-flight order submission. Seq orders submissions
// so that a late response never overwrites the docket of a newer one.
type Submission struct {
	ID    uuid.UUID
	Seq   uint64
	Pair  string
	Order domain.LimitOrder
}

// Coordinator owns the trading State and serializes every mutation.
type Coordinator struct {
	mu     sync.Mutex
	state  State
	seq    uint64
	subs   *events.Broadcaster[State]
	logger *zap.Logger
}

// NewCoordinator creates a coordinator for the initial pair.
func NewCoordinator(pair string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		state:  Initial(pair),
		subs:   events.NewBroadcaster[State](16),
		logger: logger,
	}
}

func (c *Coordinator) must() {
	if c == nil || c.subs == nil {
		panic(&domain.StateError{Component: "trading coordinator"})
	}
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() State {
	c.must()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch applies a and notifies subscribers.
func (c *Coordinator) Dispatch(a Action) State {
	c.must()
	return c.mutate(func(s State) State { return Reduce(s, a) })
}

// Subscribe returns a channel receiving every new state.
func (c *Coordinator) Subscribe() chan State {
	c.must()
	return c.subs.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (c *Coordinator) Unsubscribe(ch chan State) {
	c.must()
	c.subs.Unsubscribe(ch)
}

// Commit pushes the draft into the authoritative state and starts a submission.
// It fails with a ValidationError when the draft cannot be submitted.
// minAmount is ignored when zero.
func (c *Coordinator) Commit(minAmount decimal.Decimal) (Submission, error) {
	c.must()

	var (
		sub Submission
		err error
	)
	c.mutate(func(s State) State {
		if err = Validate(s, minAmount); err != nil {
			return s
		}
		s.Price = s.Draft.Price
		s.Amount = s.Draft.Amount
		s.Side = s.Draft.Side
		s.Pending++

		c.seq++
		sub = Submission{
			ID:   uuid.New(),
			Seq:  c.seq,
			Pair: s.Pair,
			Order: domain.LimitOrder{
				Pair:   s.Pair,
				Price:  s.Price,
				Amount: s.Amount,
				Side:   s.Side,
			},
		}
		return s
	})
	if err != nil {
		return Submission{}, err
	}

	c.logger.Info("order submission started",
		zap.String("id", sub.ID.String()),
		zap.Uint64("seq", sub.Seq),
		zap.String("order", sub.Order.String()))
	return sub, nil
}

// ApplyDocket records the exchange acknowledgment of sub. The form is cleared
// only if the docket is applied and the pair has not changed meanwhile.
// It reports whether the docket became the active one.
func (c *Coordinator) ApplyDocket(sub Submission, docket domain.LimitOrderDocket) bool {
	c.must()

	applied := false
	c.mutate(func(s State) State {
		s.Pending = max(s.Pending-1, 0)
		if sub.Seq <= s.docketSeq {
			return s
		}
		applied = true
		s.docketSeq = sub.Seq
		s.Docket = &docket
		if s.Pair == sub.Pair {
			s.Price = ""
			s.Amount = ""
			s.Draft.Price = ""
			s.Draft.Amount = ""
			s = s.revalidate()
		}
		return s
	})

	if !applied {
		c.logger.Warn("late docket discarded",
			zap.String("id", sub.ID.String()),
			zap.Int64("order_id", docket.OrderID))
	}
	return applied
}

// FailSubmission ends sub without touching the draft.
func (c *Coordinator) FailSubmission(sub Submission) {
	c.must()
	c.mutate(func(s State) State {
		s.Pending = max(s.Pending-1, 0)
		return s
	})
}

// Docket returns the active docket.
func (c *Coordinator) Docket() (domain.LimitOrderDocket, bool) {
	s := c.State()
	if s.Docket == nil {
		return domain.LimitOrderDocket{}, false
	}
	return *s.Docket, true
}

// ClearDocket drops the active docket if it still refers to orderID.
func (c *Coordinator) ClearDocket(orderID int64) {
	c.must()
	c.mutate(func(s State) State {
		if s.Docket != nil && s.Docket.OrderID == orderID {
			return Reduce(s, ClearDocket{})
		}
		return s
	})
}

func (c *Coordinator) mutate(fn func(State) State) State {
	c.mu.Lock()
	c.state = fn(c.state)
	state := c.state
	c.mu.Unlock()

	c.subs.Publish(state)
	return state
}

// Validate checks that the draft of s is a complete, positive order.
func Validate(s State, minAmount decimal.Decimal) error {
	if !s.PriceValid {
		return &domain.ValidationError{Field: "price", Value: s.Draft.Price, Reason: "not a decimal number"}
	}
	if !s.AmountValid {
		return &domain.ValidationError{Field: "amount", Value: s.Draft.Amount, Reason: "not a decimal number"}
	}
	if !s.Draft.Side.IsValid() {
		return &domain.ValidationError{Field: "side", Value: string(s.Draft.Side), Reason: "must be bid or ask"}
	}

	if _, err := positive("price", s.Draft.Price); err != nil {
		return err
	}

	amount, err := positive("amount", s.Draft.Amount)
	if err != nil {
		return err
	}
	if minAmount.IsPositive() && amount.LessThan(minAmount) {
		return &domain.ValidationError{
			Field:  "amount",
			Value:  s.Draft.Amount,
			Reason: "below minimum amount " + minAmount.String(),
		}
	}
	return nil
}

func positive(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, &domain.ValidationError{Field: field, Reason: "required"}
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &domain.ValidationError{Field: field, Value: v, Reason: "must be a positive number"}
	}
	return d, nil
}
