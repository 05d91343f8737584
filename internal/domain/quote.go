package domain

// Quote best bid/ask for a pair. MidPrice is derived locally.
type Quote struct {
	Pair      string `json:"pair"`
	BidPrice  string `json:"bid_price"`
	AskPrice  string `json:"ask_price"`
	BidAmount string `json:"bid_amount"`
	AskAmount string `json:"ask_amount"`
	Timestamp string `json:"timestamp"`
	MidPrice  string `json:"mid_price"`
}
