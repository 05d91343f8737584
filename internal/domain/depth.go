package domain

// DepthPoint single price level as sent by the exchange.
type DepthPoint struct {
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

// Depth outstanding bids and asks for a pair. Always replaced wholesale.
type Depth struct {
	Bids []DepthPoint `json:"bids"`
	Asks []DepthPoint `json:"asks"`
}
