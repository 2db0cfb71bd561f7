// File: perf/metrics.go
package perf

import (
	"math"
	"sort"

	"Tradecurve/utilities"
)

// annualizationFactor scales per-period Sharpe to a yearly figure. The
// dashboard uses the trading-days constant regardless of the actual sampling
// frequency of the series.
const annualizationFactor = 252

// tradeLeg is one side of a long/short pairing used for the win rate.
type tradeLeg struct {
	at       int64
	price    float64
	hasPrice bool
}

// ComputeMetrics derives the performance summary for a reconciled series.
// It never fails: degenerate inputs (empty series, zero variance, no
// completed trade pairs) resolve to zero-valued fields rather than NaN.
func ComputeMetrics(points []*TradingDataPoint, events []RawLogEvent, initialEquity float64) TradingMetrics {
	m := TradingMetrics{
		TotalTrades: countTrades(events),
		WinRate:     winRate(events),
	}

	if len(points) == 0 {
		return m
	}

	if isFinite(initialEquity) && initialEquity > 0 {
		last := points[len(points)-1]
		m.TotalROI = sanitize(utilities.RoundFloat((last.NetValue-initialEquity)/initialEquity*100, 2))
		m.MaxDrawdown = sanitize(maxDrawdown(points, initialEquity))
	}
	m.SharpeRatio = sanitize(sharpeRatio(points))
	if points[0].BenchmarkPrice != nil {
		m.InitialPrice = *points[0].BenchmarkPrice
	}

	return m
}

// countTrades counts the log entries that represent a trade action.
func countTrades(events []RawLogEvent) int {
	n := 0
	for _, ev := range events {
		switch ev.Kind {
		case EventOpenLong, EventOpenShort, EventStopLoss:
			n++
		}
	}
	return n
}

// winRate pairs every open-long with the first open-short strictly later in
// time. A pair is completed when both legs carry a numeric price and is a win
// when the exit exceeds the entry. Shorts are not consumed by a pairing, so a
// single short can settle several longs when longs outnumber shorts.
func winRate(events []RawLogEvent) float64 {
	var longs, shorts []tradeLeg
	for _, ev := range events {
		if ev.Kind != EventOpenLong && ev.Kind != EventOpenShort {
			continue
		}
		ts, err := parseTimestamp(ev.EventTime)
		if err != nil {
			continue
		}
		leg := tradeLeg{at: ts.UnixMilli()}
		if ev.Info != nil && finitePtr(ev.Info.Price) {
			leg.price = *ev.Info.Price
			leg.hasPrice = true
		}
		if ev.Kind == EventOpenLong {
			longs = append(longs, leg)
		} else {
			shorts = append(shorts, leg)
		}
	}
	sort.SliceStable(longs, func(i, j int) bool { return longs[i].at < longs[j].at })
	sort.SliceStable(shorts, func(i, j int) bool { return shorts[i].at < shorts[j].at })

	var completed, wins int
	for _, long := range longs {
		for _, short := range shorts {
			if short.at <= long.at {
				continue
			}
			// The first later short is the pair, priced or not.
			if long.hasPrice && short.hasPrice {
				completed++
				if short.price > long.price {
					wins++
				}
			}
			break
		}
	}

	if completed == 0 {
		return 0
	}
	return utilities.RoundFloat(float64(wins)/float64(completed)*100, 2)
}

// maxDrawdown tracks the running peak, seeded at the initial equity, and
// reports the deepest peak-to-trough decline as a negative percent.
func maxDrawdown(points []*TradingDataPoint, initialEquity float64) float64 {
	peak := initialEquity
	worst := 0.0
	for _, p := range points {
		if p.NetValue > peak {
			peak = p.NetValue
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.NetValue) / peak * 100
		if dd > worst {
			worst = dd
		}
	}
	if worst == 0 {
		return 0
	}
	return utilities.RoundFloat(-worst, 2)
}

// sharpeRatio annualizes mean over volatility of period-over-period simple
// returns. Fewer than two points or zero volatility yield 0.
func sharpeRatio(points []*TradingDataPoint) float64 {
	if len(points) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].NetValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (points[i].NetValue-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}
	return utilities.RoundFloat(mean/stdDev*math.Sqrt(annualizationFactor), 2)
}

// sanitize maps NaN and infinities to 0 so a metric is always displayable.
func sanitize(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}
