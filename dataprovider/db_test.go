package dataprovider

import (
	"path/filepath"
	"testing"
	"time"

	"Tradecurve/perf"
	"Tradecurve/utilities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cfg := utilities.DatabaseConfig{DBPath: filepath.Join(t.TempDir(), "cache.db")}
	cache, err := NewSQLiteCache(cfg, utilities.NewLogger(utilities.Error))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func fptr(v float64) *float64 { return &v }

func TestSQLiteCache_SamplesRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	final := true
	in := []perf.RawEquitySample{
		{
			Timestamp:       "2024-01-01T00:00:00Z",
			Equity:          fptr(10000),
			BenchmarkReturn: fptr(0.05),
			StockPrice:      fptr(42000),
			StockBalance:    fptr(0.25),
			OHLCV: &perf.RawOHLCV{
				Open: 41900, High: 42100, Low: 41800, Close: 42000,
				Volume: fptr(12.5), Final: &final, Coverage: fptr(0.98),
			},
		},
		{Timestamp: "2024-01-01T01:00:00Z", Equity: fptr(10100)},
	}
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", in))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := cache.GetEquitySamples("ent-1", "1h", start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "2024-01-01T00:00:00Z", out[0].Timestamp)
	assert.Equal(t, 10000.0, *out[0].Equity)
	assert.Equal(t, 0.05, *out[0].BenchmarkReturn)
	assert.Equal(t, 42000.0, *out[0].StockPrice)
	assert.Equal(t, 0.25, *out[0].StockBalance)
	require.NotNil(t, out[0].OHLCV)
	assert.Equal(t, 41900.0, out[0].OHLCV.Open)
	assert.Equal(t, 42000.0, out[0].OHLCV.Close)
	assert.Equal(t, 12.5, *out[0].OHLCV.Volume)
	assert.True(t, *out[0].OHLCV.Final)
	assert.Equal(t, 0.98, *out[0].OHLCV.Coverage)

	assert.Nil(t, out[1].BenchmarkReturn)
	assert.Nil(t, out[1].StockPrice)
	assert.Nil(t, out[1].OHLCV)
}

func TestSQLiteCache_UpsertReplacesSameInstant(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(10000)},
	}))
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(10500)},
	}))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := cache.GetEquitySamples("ent-1", "1h", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 10500.0, *out[0].Equity)
}

func TestSQLiteCache_ScopesByEntityAndTimeframe(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(1)},
	}))
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1d", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(2)},
	}))
	require.NoError(t, cache.SaveEquitySamples("ent-2", "1h", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(3)},
	}))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := cache.GetEquitySamples("ent-1", "1h", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, *out[0].Equity)
}

func TestSQLiteCache_SkipsUnparsableSampleTimestamps(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", []perf.RawEquitySample{
		{Timestamp: "not-a-time", Equity: fptr(10000)},
	}))

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := cache.GetEquitySamples("ent-1", "1h", start, start.AddDate(10, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSQLiteCache_EventsRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	in := []perf.RawLogEvent{
		{
			EventTime: "2024-01-01T00:30:00Z",
			Kind:      perf.EventOpenLong,
			Message:   "opened long BTC @ 42000",
			Info:      &perf.EventInfo{Price: fptr(42000)},
		},
		{EventTime: "2024-01-01T01:30:00Z", Kind: perf.EventDeposit, Message: "deposit 500 USD"},
		{EventTime: "2024-02-01T00:00:00Z", Kind: perf.EventOpenShort, Message: "out of range"},
	}
	require.NoError(t, cache.SaveTradingEvents("ent-1", in))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := cache.GetTradingEvents("ent-1", start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, perf.EventOpenLong, out[0].Kind)
	assert.Equal(t, "opened long BTC @ 42000", out[0].Message)
	require.NotNil(t, out[0].Info)
	assert.Equal(t, 42000.0, *out[0].Info.Price)

	assert.Equal(t, perf.EventDeposit, out[1].Kind)
	assert.Nil(t, out[1].Info)
}

func TestSQLiteCache_PruneBefore(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveEquitySamples("ent-1", "1h", []perf.RawEquitySample{
		{Timestamp: "2024-01-01T00:00:00Z", Equity: fptr(10000)},
		{Timestamp: "2024-03-01T00:00:00Z", Equity: fptr(11000)},
	}))
	require.NoError(t, cache.SaveTradingEvents("ent-1", []perf.RawLogEvent{
		{EventTime: "2024-01-01T00:00:00Z", Kind: perf.EventOpenLong, Message: "old"},
		{EventTime: "2024-03-01T00:00:00Z", Kind: perf.EventOpenShort, Message: "recent"},
	}))

	require.NoError(t, cache.PruneBefore(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(5, 0, 0)
	samples, err := cache.GetEquitySamples("ent-1", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 11000.0, *samples[0].Equity)

	events, err := cache.GetTradingEvents("ent-1", start, end)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "recent", events[0].Message)
}
