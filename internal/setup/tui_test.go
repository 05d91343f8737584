package setup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/simex/config"
	"github.com/vadiminshakov/simex/internal/storage/session"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		input    string
		wantErr  bool
	}{
		{"url ok", validateURL, "https://example.com/api", false},
		{"url bad", validateURL, "example", true},
		{"pair ok", validatePair, "NTN-USDC", false},
		{"pair bad", validatePair, "NTN_USDC", true},
		{"interval ok", validateInterval, "5s", false},
		{"interval zero", validateInterval, "0s", true},
		{"interval bad", validateInterval, "soon", true},
		{"required", validateNotEmpty, "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnswersSave_Manual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	a := answers{
		baseURL:    "http://localhost:9000/api",
		pair:       "ATN-USDC",
		interval:   "2s",
		webAddr:    ":9001",
		auth:       authManual,
		address:    " 0xabc ",
		apiKey:     "key",
		sessionDir: filepath.Join(dir, "session"),
	}
	require.NoError(t, a.save(path))

	cfg, err := config.Parse([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, "ATN-USDC", cfg.DefaultPair)
	assert.Equal(t, ":9001", cfg.WebAddr)
	assert.Equal(t, a.sessionDir, cfg.SessionDir)

	store, err := session.NewWALStore(a.sessionDir)
	require.NoError(t, err)
	defer store.Close()

	creds, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xabc", creds.Address)
	assert.Equal(t, "key", creds.APIKey)
}
