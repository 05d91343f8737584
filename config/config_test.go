package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "NTN-USDC", cfg.DefaultPair)
	assert.Equal(t, 10, cfg.DepthSize)
	assert.Equal(t, 5*time.Second, cfg.DepthPollInterval)
	assert.Equal(t, 10*time.Second, cfg.QuotePollInterval)
	assert.Equal(t, 5*time.Minute, cfg.ChartPollInterval)
	assert.Equal(t, 30*time.Second, cfg.BalancePollInterval)
	assert.Equal(t, ":8000", cfg.WebAddr)
	assert.Equal(t, 0, cfg.EMAPeriod)
	assert.Empty(t, cfg.TLSDomains)
}

func TestParse_Flags(t *testing.T) {
	cfg, err := Parse([]string{
		"-baseurl", "http://localhost:9000/api/",
		"-pair", "ATN-USDC",
		"-depthsize", "5",
		"-chartinterval", "0",
		"-tlsdomains", "a.example.com, b.example.com",
		"-ema", "7",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api", cfg.BaseURL)
	assert.Equal(t, "ATN-USDC", cfg.DefaultPair)
	assert.Equal(t, 5, cfg.DepthSize)
	assert.Equal(t, time.Duration(0), cfg.ChartPollInterval)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.TLSDomains)
	assert.Equal(t, 7, cfg.EMAPeriod)
}

func TestParse_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad pair", []string{"-pair", "NTNUSDC"}},
		{"zero depth", []string{"-depthsize", "0"}},
		{"negative ema", []string{"-ema", "-1"}},
		{"bad url", []string{"-baseurl", "not a url"}},
		{"unknown flag", []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestParse_Yaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://localhost:9000/api
default_pair: ATN-NTN
depth_size: "20"
quote_poll_interval: 3s
chart_poll_interval: 0s
session_dir: /tmp/simex
`), 0o644))

	cfg, err := Parse([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api", cfg.BaseURL)
	assert.Equal(t, "ATN-NTN", cfg.DefaultPair)
	assert.Equal(t, 20, cfg.DepthSize)
	assert.Equal(t, 3*time.Second, cfg.QuotePollInterval)
	assert.Equal(t, time.Duration(0), cfg.ChartPollInterval)
	assert.Equal(t, DefaultDepthPollInterval, cfg.DepthPollInterval)
	assert.Equal(t, "/tmp/simex", cfg.SessionDir)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.gen.yaml")
	require.NoError(t, Save(path, ConfigTmp{
		BaseURL:           "http://localhost:9000/api",
		DefaultPair:       "ATN-USDC",
		DepthPollInterval: 2 * time.Second,
	}))

	cfg, err := Parse([]string{"-config", path})
	require.NoError(t, err)
	assert.Equal(t, "ATN-USDC", cfg.DefaultPair)
	assert.Equal(t, 2*time.Second, cfg.DepthPollInterval)
	assert.Equal(t, DefaultChartPollInterval, cfg.ChartPollInterval)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
