package domain

// Plot raw chart point.
type Plot struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// ChartItem raw chart series for a pair as published by the chart source.
type ChartItem struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Plot   []Plot `json:"plot"`
}

// ChartPlot normalized point: unix seconds, unique and ascending within a series.
type ChartPlot struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}
