// Package trading holds the order draft and reconciles it with the active pair,
// the selected depth level and the auto-update preference.
package trading

import (
	"regexp"

	"github.com/vadiminshakov/simex/internal/domain"
)

var decimalInput = regexp.MustCompile(`^\d*\.?\d*$`)

// Draft user-editable order form.
type Draft struct {
	Price  string      `json:"price"`
	Amount string      `json:"amount"`
	Side   domain.Side `json:"side"`
}

// State authoritative trading state. Price and Side are set by depth selection;
// the draft mirrors them while AutoUpdate is on.
type State struct {
	Pair        string                   `json:"pair"`
	Price       string                   `json:"price"`
	Amount      string                   `json:"amount"`
	Side        domain.Side              `json:"side"`
	AutoUpdate  bool                     `json:"auto_update"`
	Draft       Draft                    `json:"draft"`
	PriceValid  bool                     `json:"price_valid"`
	AmountValid bool                     `json:"amount_valid"`
	Docket      *domain.LimitOrderDocket `json:"docket,omitempty"`
	Pending     int                      `json:"pending"`

	docketSeq uint64
}

// Initial returns the state for pair with auto-update enabled.
func Initial(pair string) State {
	s := State{Pair: pair, AutoUpdate: true}
	return s.reset()
}

// Valid reports whether the draft can be submitted.
func (s State) Valid() bool {
	return s.PriceValid && s.AmountValid
}

// ValidInput reports whether v is an acceptable partial decimal input.
func ValidInput(v string) bool {
	return decimalInput.MatchString(v)
}

func (s State) reset() State {
	s.Price = ""
	s.Amount = ""
	s.Side = domain.SideBid
	s.Draft = Draft{Side: domain.SideBid}
	return s.revalidate()
}

func (s State) mirror() State {
	if s.AutoUpdate {
		s.Draft.Price = s.Price
		s.Draft.Side = s.Side
	}
	return s.revalidate()
}

func (s State) revalidate() State {
	s.PriceValid = ValidInput(s.Draft.Price)
	s.AmountValid = ValidInput(s.Draft.Amount)
	return s
}

// Action is a state transition applied by Reduce.
type Action interface {
	reduce(State) State
}

// Reduce applies a to s and returns the new state.
func Reduce(s State, a Action) State {
	return a.reduce(s)
}

// SetActivePair switches the pair and clears the draft, even when the pair is unchanged.
type SetActivePair struct {
	Pair string
}

func (a SetActivePair) reduce(s State) State {
	s.Pair = a.Pair
	return s.reset()
}

// SelectLevel sets the authoritative price and side from a depth row.
type SelectLevel struct {
	Price string
	Side  domain.Side
}

func (a SelectLevel) reduce(s State) State {
	s.Price = a.Price
	if a.Side.IsValid() {
		s.Side = a.Side
	}
	return s.mirror()
}

// SetAutoUpdate toggles mirroring of the authoritative price and side.
type SetAutoUpdate struct {
	Enabled bool
}

func (a SetAutoUpdate) reduce(s State) State {
	s.AutoUpdate = a.Enabled
	return s.mirror()
}

// EditPrice manual price input.
type EditPrice struct {
	Value string
}

func (a EditPrice) reduce(s State) State {
	s.Draft.Price = a.Value
	if s.AutoUpdate {
		s.Price = a.Value
	}
	return s.revalidate()
}

// EditAmount manual amount input.
type EditAmount struct {
	Value string
}

func (a EditAmount) reduce(s State) State {
	s.Draft.Amount = a.Value
	return s.revalidate()
}

// EditSide manual side input.
type EditSide struct {
	Side domain.Side
}

func (a EditSide) reduce(s State) State {
	if !a.Side.IsValid() {
		return s
	}
	s.Draft.Side = a.Side
	if s.AutoUpdate {
		s.Side = a.Side
	}
	return s.revalidate()
}

// ClearDocket drops the active docket.
type ClearDocket struct{}

func (ClearDocket) reduce(s State) State {
	s.Docket = nil
	return s
}
