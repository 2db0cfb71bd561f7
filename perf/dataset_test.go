// File: perf/dataset_test.go
package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDatasetRunsFullPipeline(t *testing.T) {
	ds, err := BuildDataset(fixtureSamples(), fixtureEvents(), "1h", Baseline{InitialEquity: 10000})
	require.NoError(t, err)

	require.Len(t, ds.Points, 3)
	require.Len(t, ds.Candles, 3)

	require.NotNil(t, ds.Points[1].MatchedEvent)
	assert.Equal(t, EventOpenLong, ds.Points[1].MatchedEvent.Type)

	assert.Equal(t, 2.5, ds.Metrics.TotalROI)
	assert.Equal(t, 1, ds.Metrics.TotalTrades)
	assert.Equal(t, 3000.0, ds.Metrics.InitialPrice)
}

func TestBuildDatasetPropagatesBaselineError(t *testing.T) {
	ds, err := BuildDataset(fixtureSamples(), nil, "1h", Baseline{})
	assert.ErrorIs(t, err, ErrInvalidBaseline)
	assert.Nil(t, ds)
}

func TestBuildDatasetEmptyInputs(t *testing.T) {
	ds, err := BuildDataset(nil, nil, "1h", Baseline{InitialEquity: 10000})
	require.NoError(t, err)
	assert.Empty(t, ds.Points)
	assert.Empty(t, ds.Candles)
	assert.Equal(t, TradingMetrics{}, ds.Metrics)
}
