// File: perf/dataset.go
package perf

// BuildDataset runs the full reconciliation pipeline over one entity's raw
// series: normalize the equity samples, annotate them with trading-log
// events, derive the candlestick series, and compute the metrics summary.
// The only failure mode is an invalid baseline.
func BuildDataset(samples []RawEquitySample, events []RawLogEvent, timeframe string, baseline Baseline) (*Dataset, error) {
	points, err := NormalizeEquitySeries(samples, baseline)
	if err != nil {
		return nil, err
	}
	points = MatchEvents(points, events, timeframe)

	return &Dataset{
		Points:  points,
		Candles: BuildCandlesticks(points, samples),
		Metrics: ComputeMetrics(points, events, baseline.InitialEquity),
	}, nil
}
