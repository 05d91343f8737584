// Package indicators wraps technical analysis indicators used by chart overlays.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// CalculateEMA calculates the Exponential Moving Average for the given period.
// The result is shorter than values by the indicator warm-up and aligns with its tail.
func CalculateEMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("invalid EMA period: %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(values))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(values)
	outputChan := ema.Compute(inputChan)

	return helper.ChanToSlice(outputChan), nil
}
