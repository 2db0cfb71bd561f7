package utilities

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 10123.46, RoundFloat(10123.456, 2))
	assert.Equal(t, 10123.45, RoundFloat(10123.454, 2))
	assert.Equal(t, -25.0, RoundFloat(-25.0041, 2))
	assert.Equal(t, 1.2346, RoundFloat(1.23456, 4))
	assert.Equal(t, 0.0, RoundFloat(0, 2))
}

func TestTimeframeDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"30m": 30 * time.Minute,
		"1h":  time.Hour,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for tf, want := range cases {
		got, err := TimeframeDuration(tf)
		require.NoError(t, err, tf)
		assert.Equal(t, want, got, tf)
	}

	got, err := TimeframeDuration("4H")
	require.NoError(t, err, "labels are case-insensitive")
	assert.Equal(t, 4*time.Hour, got)

	_, err = TimeframeDuration("7m")
	assert.Error(t, err)
	assert.False(t, IsSupportedTimeframe("7m"))
	assert.True(t, IsSupportedTimeframe("1d"))
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, Debug, level)

	level, err = ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, Warn, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestParseFloatFromInterface(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
	}{
		{42000.5, 42000.5},
		{"41500.25", 41500.25},
		{float32(2.5), 2.5},
		{int(7), 7},
		{int64(9), 9},
	}
	for _, tc := range cases {
		got, err := ParseFloatFromInterface(tc.in)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-6)
	}

	_, err := ParseFloatFromInterface([]string{"nope"})
	assert.Error(t, err)
}

func TestFilterAfter(t *testing.T) {
	type stamped struct {
		at time.Time
	}
	cutoff := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	items := []stamped{
		{at: cutoff.Add(-time.Hour)},
		{at: cutoff},
		{at: cutoff.Add(time.Hour)},
		{at: cutoff.Add(2 * time.Hour)},
	}

	kept := FilterAfter(items, func(s stamped) time.Time { return s.at }, cutoff)
	require.Len(t, kept, 2, "the cutoff itself is excluded")
	assert.Equal(t, cutoff.Add(time.Hour), kept[0].at)
}

func TestMinInt(t *testing.T) {
	assert.Equal(t, 3, MinInt(3, 7))
	assert.Equal(t, -2, MinInt(5, -2))
	assert.Equal(t, 4, MinInt(4, 4))
}

func TestDoJSONRequest_RetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var result struct {
		Status string `json:"status"`
	}
	err = DoJSONRequest(server.Client(), req, 3, 10*time.Millisecond, &result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 3, calls)
}

func TestDoJSONRequest_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var result map[string]string
	err = DoJSONRequest(server.Client(), req, 2, time.Millisecond, &result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries failed")
	assert.Equal(t, 3, calls, "one initial attempt plus two retries")
}

func TestDoJSONRequest_ClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "no such entity"}`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	var result map[string]string
	err = DoJSONRequest(server.Client(), req, 3, time.Millisecond, &result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Equal(t, 1, calls)
}
