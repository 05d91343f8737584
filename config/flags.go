package config

import (
	"flag"
	"strconv"
	"strings"
	"time"
)

type cliFlags struct {
	configPath          string
	baseURL             string
	chartURL            string
	pair                string
	depthSize           int
	depthPollInterval   time.Duration
	quotePollInterval   time.Duration
	chartPollInterval   time.Duration
	balancePollInterval time.Duration
	ordersPollInterval  time.Duration
	httpTimeout         time.Duration
	webAddr             string
	tlsDomains          string
	tlsCacheDir         string
	sessionDir          string
	emaPeriod           int
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("simex", flag.ContinueOnError)

	fs.StringVar(&f.configPath, "config", "", "path to yaml config")
	fs.StringVar(&f.baseURL, "baseurl", DefaultBaseURL, "exchange api base url")
	fs.StringVar(&f.chartURL, "charturl", "", "chart source url")
	fs.StringVar(&f.pair, "pair", DefaultPair, "default pair, example: NTN-USDC")
	fs.IntVar(&f.depthSize, "depthsize", DefaultDepthSize, "depth rows per side")
	fs.DurationVar(&f.depthPollInterval, "depthinterval", DefaultDepthPollInterval, "depth poll interval")
	fs.DurationVar(&f.quotePollInterval, "quoteinterval", DefaultQuotePollInterval, "quotes poll interval")
	fs.DurationVar(&f.chartPollInterval, "chartinterval", DefaultChartPollInterval, "chart poll interval, 0 fetches once")
	fs.DurationVar(&f.balancePollInterval, "balanceinterval", DefaultBalancePollInterval, "balances poll interval")
	fs.DurationVar(&f.ordersPollInterval, "ordersinterval", DefaultOrdersPollInterval, "orders poll interval")
	fs.DurationVar(&f.httpTimeout, "httptimeout", DefaultHTTPTimeout, "exchange request timeout")
	fs.StringVar(&f.webAddr, "addr", DefaultWebAddr, "web ui listen address")
	fs.StringVar(&f.tlsDomains, "tlsdomains", "", "comma separated domains for automatic TLS")
	fs.StringVar(&f.tlsCacheDir, "tlscache", DefaultTLSCacheDir, "certificate cache dir")
	fs.StringVar(&f.sessionDir, "sessiondir", DefaultSessionDir, "session WAL dir")
	fs.IntVar(&f.emaPeriod, "ema", 0, "chart EMA period, 0 disables")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return f, nil
}

func (f cliFlags) toTmp() ConfigTmp {
	chartInterval := f.chartPollInterval
	tmp := ConfigTmp{
		BaseURL:             f.baseURL,
		ChartURL:            f.chartURL,
		DefaultPair:         f.pair,
		DepthSizeStr:        strconv.Itoa(f.depthSize),
		DepthPollInterval:   f.depthPollInterval,
		QuotePollInterval:   f.quotePollInterval,
		ChartPollInterval:   &chartInterval,
		BalancePollInterval: f.balancePollInterval,
		OrdersPollInterval:  f.ordersPollInterval,
		HTTPTimeout:         f.httpTimeout,
		WebAddr:             f.webAddr,
		TLSCacheDir:         f.tlsCacheDir,
		SessionDir:          f.sessionDir,
		EMAPeriodStr:        strconv.Itoa(f.emaPeriod),
	}
	for _, d := range strings.Split(f.tlsDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			tmp.TLSDomains = append(tmp.TLSDomains, d)
		}
	}
	return tmp
}
