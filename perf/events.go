// File: perf/events.go
package perf

import (
	"sort"
	"time"

	"Tradecurve/utilities"
)

// minMatchTolerance is the floor of the event matching window. Events are
// never orphaned just because the chart is on a fine timeframe.
const minMatchTolerance = time.Minute

// matchTolerance derives the matching window in milliseconds from the
// requested timeframe: half the nominal sampling interval, never less than
// one minute, so that sparse series still capture their events.
func matchTolerance(timeframe string) int64 {
	tol := minMatchTolerance
	if d, err := utilities.TimeframeDuration(timeframe); err == nil && d/2 > tol {
		tol = d / 2
	}
	return tol.Milliseconds()
}

// MatchEvents attaches each trading-log event to the single nearest point
// within the timeframe-derived tolerance. Each point receives at most one
// event and each event is assigned at most once; events with no point in
// range are dropped. Events at the same exact instant are corrections, so the
// last one wins that instant. The series is annotated in place and returned
// for chaining; re-running over an already annotated series is a no-op.
func MatchEvents(points []*TradingDataPoint, events []RawLogEvent, timeframe string) []*TradingDataPoint {
	if len(points) == 0 || len(events) == 0 {
		return points
	}

	tol := matchTolerance(timeframe)

	byTime := make(map[int64]MatchedEvent, len(events))
	instants := make([]int64, 0, len(events))
	for _, ev := range events {
		ts, err := parseTimestamp(ev.EventTime)
		if err != nil {
			continue
		}
		ms := ts.UnixMilli()
		if _, seen := byTime[ms]; !seen {
			instants = append(instants, ms)
		}
		byTime[ms] = MatchedEvent{Type: ev.Kind, Description: ev.Message}
	}
	// Earliest event first, independent of upstream ordering, so competing
	// events resolve the same way on every run.
	sort.Slice(instants, func(i, j int) bool { return instants[i] < instants[j] })

	for _, ms := range instants {
		ev := byTime[ms]
		if alreadyMatched(points, ms, ev, tol) {
			continue
		}

		var best *TradingDataPoint
		bestDiff := int64(0)
		for _, p := range points {
			if p.MatchedEvent != nil {
				continue
			}
			diff := absDiff(p.TimestampNumeric, ms)
			if diff > tol {
				continue
			}
			if best == nil || diff < bestDiff {
				best = p
				bestDiff = diff
			}
		}
		if best != nil {
			matched := ev
			best.MatchedEvent = &matched
		}
	}

	return points
}

// alreadyMatched reports whether an identical annotation already sits on a
// point inside the tolerance window.
func alreadyMatched(points []*TradingDataPoint, ms int64, ev MatchedEvent, tol int64) bool {
	for _, p := range points {
		if p.MatchedEvent == nil || *p.MatchedEvent != ev {
			continue
		}
		if absDiff(p.TimestampNumeric, ms) <= tol {
			return true
		}
	}
	return false
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
