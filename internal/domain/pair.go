// Package domain defines core data structures shared by the market data and trading services.
package domain

import (
	"fmt"
	"strings"
)

// Pair tradable asset combination.
type Pair struct {
	// Base base asset symbol.
	Base string
	// Quote quote asset symbol.
	Quote string
}

// ParsePair parses the exchange notation BASE-QUOTE (e.g. NTN-USDC).
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, expected BASE-QUOTE", s)
	}
	return Pair{Base: parts[0], Quote: parts[1]}, nil
}

// String returns the exchange notation.
func (p Pair) String() string {
	return fmt.Sprintf("%s-%s", p.Base, p.Quote)
}
