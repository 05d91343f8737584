// Package chart normalizes raw chart feeds into time-sorted line series.
package chart

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/pkg/indicators"
)

// epochMillisThreshold separates millisecond epochs from second epochs.
const epochMillisThreshold = 1_000_000_000_000

// PriceLines horizontal reference lines drawn over the series.
type PriceLines struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// Series normalized chart of one pair.
type Series struct {
	Pair   string             `json:"pair"`
	Points []domain.ChartPlot `json:"points"`
	Lines  *PriceLines        `json:"lines,omitempty"`
	EMA    []domain.ChartPlot `json:"ema,omitempty"`
}

// Select returns the raw plot of the item named pair.
func Select(items []domain.ChartItem, pair string) []domain.Plot {
	for _, item := range items {
		if item.Name == pair {
			return item.Plot
		}
	}
	return nil
}

// Normalize converts raw points to unix seconds, keeps the first point of every
// second and sorts ascending. Points that cannot be parsed are skipped.
func Normalize(plots []domain.Plot) []domain.ChartPlot {
	seen := make(map[int64]struct{}, len(plots))
	out := make([]domain.ChartPlot, 0, len(plots))

	for _, p := range plots {
		ts, ok := parseTime(p.X)
		if !ok {
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(p.Y))
		if err != nil {
			continue
		}
		if _, dup := seen[ts]; dup {
			continue
		}
		seen[ts] = struct{}{}
		out = append(out, domain.ChartPlot{Time: ts, Value: value.InexactFloat64()})
	}

	slices.SortStableFunc(out, func(a, b domain.ChartPlot) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return out
}

// Build normalizes the series of pair and derives the overlays.
// emaPeriod <= 0 disables the EMA overlay.
func Build(items []domain.ChartItem, pair string, emaPeriod int) Series {
	points := Normalize(Select(items, pair))
	series := Series{Pair: pair, Points: points}
	if lines, ok := Lines(points); ok {
		series.Lines = &lines
	}
	if emaPeriod > 0 {
		series.EMA = EMA(points, emaPeriod)
	}
	return series
}

// Lines returns min, average and max of the series values.
func Lines(points []domain.ChartPlot) (PriceLines, bool) {
	if len(points) == 0 {
		return PriceLines{}, false
	}

	lines := PriceLines{Min: points[0].Value, Max: points[0].Value}
	sum := 0.0
	for _, p := range points {
		lines.Min = min(lines.Min, p.Value)
		lines.Max = max(lines.Max, p.Value)
		sum += p.Value
	}
	lines.Avg = sum / float64(len(points))
	return lines, true
}

// EMA computes the exponential moving average aligned to the tail of points.
func EMA(points []domain.ChartPlot, period int) []domain.ChartPlot {
	if period <= 0 || len(points) < period {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	computed, err := indicators.CalculateEMA(values, period)
	if err != nil {
		return nil
	}

	offset := len(points) - len(computed)
	out := make([]domain.ChartPlot, 0, len(computed))
	for i, v := range computed {
		out = append(out, domain.ChartPlot{Time: points[offset+i].Time, Value: v})
	}
	return out
}

// parseTime accepts RFC3339 timestamps and integer epochs in seconds or milliseconds.
func parseTime(x string) (int64, bool) {
	x = strings.TrimSpace(x)
	if x == "" {
		return 0, false
	}
	if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
		return t.Unix(), true
	}
	n, err := strconv.ParseInt(x, 10, 64)
	if err != nil {
		return 0, false
	}
	if n >= epochMillisThreshold {
		return n / 1000, true
	}
	return n, true
}
