// File: perf/candles.go
package perf

import (
	"Tradecurve/utilities"
)

// BuildCandlesticks emits one price candle per canonical point: the real
// OHLCV sample when the upstream observation carried one, otherwise a
// zero-range candle synthesized from the forward-filled price. A point with
// no derivable price at all produces no candle, so synthetic flat bars cover
// reporting gaps without inventing prices.
func BuildCandlesticks(points []*TradingDataPoint, samples []RawEquitySample) []TradingCandlestickPoint {
	ohlcvByTime := make(map[int64]*RawOHLCV)
	for _, s := range samples {
		if s.OHLCV == nil {
			continue
		}
		ts, err := parseTimestamp(s.Timestamp)
		if err != nil {
			continue
		}
		// Later samples at the same instant win, matching the point series.
		ohlcvByTime[ts.UnixMilli()] = s.OHLCV
	}

	candles := make([]TradingCandlestickPoint, 0, len(points))
	for _, p := range points {
		if raw, ok := ohlcvByTime[p.TimestampNumeric]; ok {
			candles = append(candles, TradingCandlestickPoint{
				Timestamp:        p.Timestamp,
				TimestampNumeric: p.TimestampNumeric,
				Open:             raw.Open,
				High:             raw.High,
				Low:              raw.Low,
				Close:            raw.Close,
				Volume:           raw.Volume,
				Final:            raw.Final,
				Coverage:         raw.Coverage,
			})
			continue
		}

		if p.BenchmarkPrice == nil {
			continue
		}
		price := utilities.RoundFloat(*p.BenchmarkPrice, 2)
		candles = append(candles, TradingCandlestickPoint{
			Timestamp:        p.Timestamp,
			TimestampNumeric: p.TimestampNumeric,
			Open:             price,
			High:             price,
			Low:              price,
			Close:            price,
		})
	}

	return candles
}
