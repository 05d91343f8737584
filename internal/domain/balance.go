package domain

// Balance per-asset wallet state.
// String fields avoid precision issues when rendered in UI layers.
type Balance struct {
	Symbol    string `json:"symbol"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
}
