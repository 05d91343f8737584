package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vadiminshakov/simex/internal/domain"
	"gopkg.in/yaml.v3"
)

// PrivateKeyEnv holds the hex wallet key used to sign API key requests.
const PrivateKeyEnv = "SIMEX_PRIVATE_KEY"

const (
	DefaultBaseURL             = "https://cax.piccadilly.autonity.org/api"
	DefaultPair                = "NTN-USDC"
	DefaultDepthSize           = 10
	DefaultDepthPollInterval   = 5 * time.Second
	DefaultQuotePollInterval   = 10 * time.Second
	DefaultChartPollInterval   = 5 * time.Minute
	DefaultBalancePollInterval = 30 * time.Second
	DefaultOrdersPollInterval  = 30 * time.Second
	DefaultHTTPTimeout         = 15 * time.Second
	DefaultWebAddr             = ":8000"
	DefaultSessionDir          = "./wal/session"
	DefaultTLSCacheDir         = "./certs"
)

type Config struct {
	BaseURL             string
	ChartURL            string
	DefaultPair         string
	DepthSize           int
	DepthPollInterval   time.Duration
	QuotePollInterval   time.Duration
	ChartPollInterval   time.Duration // 0 fetches the chart once
	BalancePollInterval time.Duration
	OrdersPollInterval  time.Duration
	HTTPTimeout         time.Duration
	WebAddr             string
	TLSDomains          []string
	TLSCacheDir         string
	SessionDir          string
	EMAPeriod           int
	PrivateKey          string
}

type ConfigTmp struct {
	BaseURL             string         `yaml:"base_url,omitempty"`
	ChartURL            string         `yaml:"chart_url,omitempty"`
	DefaultPair         string         `yaml:"default_pair,omitempty"`
	DepthSizeStr        string         `yaml:"depth_size,omitempty"`
	DepthPollInterval   time.Duration  `yaml:"depth_poll_interval,omitempty"`
	QuotePollInterval   time.Duration  `yaml:"quote_poll_interval,omitempty"`
	ChartPollInterval   *time.Duration `yaml:"chart_poll_interval,omitempty"`
	BalancePollInterval time.Duration  `yaml:"balance_poll_interval,omitempty"`
	OrdersPollInterval  time.Duration  `yaml:"orders_poll_interval,omitempty"`
	HTTPTimeout         time.Duration  `yaml:"http_timeout,omitempty"`
	WebAddr             string         `yaml:"web_addr,omitempty"`
	TLSDomains          []string       `yaml:"tls_domains,omitempty"`
	TLSCacheDir         string         `yaml:"tls_cache_dir,omitempty"`
	SessionDir          string         `yaml:"session_dir,omitempty"`
	EMAPeriodStr        string         `yaml:"ema_period,omitempty"`
}

// Get reads --config path.yaml when given, otherwise the CLI flags.
// The wallet key is taken from the environment only.
func Get() (Config, error) {
	cfg, err := Parse(os.Args[1:])
	if err != nil {
		return Config{}, err
	}
	cfg.PrivateKey = strings.TrimSpace(os.Getenv(PrivateKeyEnv))
	return cfg, nil
}

// Parse builds the config from command line arguments.
func Parse(args []string) (Config, error) {
	flags, err := parseFlags(args)
	if err != nil {
		return Config{}, err
	}
	if flags.configPath != "" {
		return getYaml(flags.configPath)
	}
	return flags.toTmp().toConfig()
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}
	return tmp.toConfig()
}

// Save writes tmp as YAML to path.
func Save(path string, tmp ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func (c ConfigTmp) toConfig() (Config, error) {
	cfg := Config{
		BaseURL:             strings.TrimRight(orDefault(c.BaseURL, DefaultBaseURL), "/"),
		ChartURL:            c.ChartURL,
		DefaultPair:         orDefault(c.DefaultPair, DefaultPair),
		DepthSize:           DefaultDepthSize,
		DepthPollInterval:   durationOrDefault(c.DepthPollInterval, DefaultDepthPollInterval),
		QuotePollInterval:   durationOrDefault(c.QuotePollInterval, DefaultQuotePollInterval),
		ChartPollInterval:   DefaultChartPollInterval,
		BalancePollInterval: durationOrDefault(c.BalancePollInterval, DefaultBalancePollInterval),
		OrdersPollInterval:  durationOrDefault(c.OrdersPollInterval, DefaultOrdersPollInterval),
		HTTPTimeout:         durationOrDefault(c.HTTPTimeout, DefaultHTTPTimeout),
		WebAddr:             orDefault(c.WebAddr, DefaultWebAddr),
		TLSDomains:          c.TLSDomains,
		TLSCacheDir:         orDefault(c.TLSCacheDir, DefaultTLSCacheDir),
		SessionDir:          orDefault(c.SessionDir, DefaultSessionDir),
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return Config{}, fmt.Errorf("incorrect 'base_url' param in config: %s, error: %w", c.BaseURL, err)
	}
	if cfg.ChartURL != "" {
		if _, err := url.ParseRequestURI(cfg.ChartURL); err != nil {
			return Config{}, fmt.Errorf("incorrect 'chart_url' param in config: %s, error: %w", c.ChartURL, err)
		}
	}
	pair, err := domain.ParsePair(cfg.DefaultPair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'default_pair' param in config (correct format is NTN-USDC), error: %w", err)
	}
	cfg.DefaultPair = pair.String()

	if c.DepthSizeStr != "" {
		size, err := strconv.Atoi(c.DepthSizeStr)
		if err != nil || size < 1 {
			return Config{}, fmt.Errorf("incorrect 'depth_size' param in config (must be a positive integer): %s", c.DepthSizeStr)
		}
		cfg.DepthSize = size
	}

	if c.ChartPollInterval != nil {
		if *c.ChartPollInterval < 0 {
			return Config{}, fmt.Errorf("incorrect 'chart_poll_interval' param in config (must not be negative)")
		}
		cfg.ChartPollInterval = *c.ChartPollInterval
	}

	if c.EMAPeriodStr != "" {
		period, err := strconv.Atoi(c.EMAPeriodStr)
		if err != nil || period < 0 {
			return Config{}, fmt.Errorf("incorrect 'ema_period' param in config (must be a non-negative integer): %s", c.EMAPeriodStr)
		}
		cfg.EMAPeriod = period
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"depth_poll_interval", cfg.DepthPollInterval},
		{"quote_poll_interval", cfg.QuotePollInterval},
		{"balance_poll_interval", cfg.BalancePollInterval},
		{"orders_poll_interval", cfg.OrdersPollInterval},
		{"http_timeout", cfg.HTTPTimeout},
	} {
		if d.value < 0 {
			return Config{}, fmt.Errorf("incorrect '%s' param in config (must not be negative)", d.name)
		}
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func durationOrDefault(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
