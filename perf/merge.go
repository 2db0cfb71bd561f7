// File: perf/merge.go
package perf

// Merge reconciles a freshly built dataset against the previously displayed
// one. Timestamp-matched points that are field-for-field identical keep their
// previous object, and when nothing materially changed the previous dataset
// itself is returned with false, so a polling consumer can skip redundant
// redraws. Identity stability is an optimization here, never a correctness
// requirement.
func Merge(prev, next *Dataset) (*Dataset, bool) {
	if next == nil {
		return prev, false
	}
	if prev == nil {
		return next, true
	}

	points, pointsChanged := mergePoints(prev.Points, next.Points)
	metricsChanged := prev.Metrics != next.Metrics

	if !pointsChanged && !metricsChanged {
		return prev, false
	}

	return &Dataset{
		Points:  points,
		Candles: next.Candles,
		Metrics: next.Metrics,
	}, true
}

// mergePoints walks the new series preferring previous point objects wherever
// a timestamp-matched point is unchanged. A length difference is
// unconditionally a change.
func mergePoints(prev, next []*TradingDataPoint) ([]*TradingDataPoint, bool) {
	if len(prev) != len(next) {
		return next, true
	}

	byTime := make(map[int64]*TradingDataPoint, len(prev))
	for _, p := range prev {
		byTime[p.TimestampNumeric] = p
	}

	merged := make([]*TradingDataPoint, len(next))
	changed := false
	for i, np := range next {
		if pp, ok := byTime[np.TimestampNumeric]; ok && pointEqual(pp, np) {
			merged[i] = pp
			continue
		}
		merged[i] = np
		changed = true
	}
	return merged, changed
}

// pointEqual compares the displayed fields of two points. Absent optionals
// only equal absent optionals.
func pointEqual(a, b *TradingDataPoint) bool {
	if a.NetValue != b.NetValue || a.ROI != b.ROI {
		return false
	}
	if !floatPtrEqual(a.BenchmarkReturn, b.BenchmarkReturn) {
		return false
	}
	if !floatPtrEqual(a.BenchmarkPrice, b.BenchmarkPrice) {
		return false
	}
	if !floatPtrEqual(a.Position, b.Position) {
		return false
	}
	return eventEqual(a.MatchedEvent, b.MatchedEvent)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eventEqual(a, b *MatchedEvent) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type == b.Type && a.Description == b.Description
}
