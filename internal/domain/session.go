package domain

// Credentials authenticated account and its exchange API key.
type Credentials struct {
	Address string `json:"address"`
	APIKey  string `json:"api_key"`
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Address != "" && c.APIKey != ""
}

// APIKeyGrant response of POST /apikeys.
type APIKeyGrant struct {
	APIKey  string `json:"apikey"`
	Account string `json:"account"`
}
