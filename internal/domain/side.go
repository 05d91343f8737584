package domain

// Side order book side.
type Side string

const (
	// SideBid buy side, rendered in the left column.
	SideBid Side = "bid"
	// SideAsk sell side, rendered in the right column.
	SideAsk Side = "ask"
)

// String returns the string representation.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the Side value is valid.
func (s Side) IsValid() bool {
	return s == SideBid || s == SideAsk
}
