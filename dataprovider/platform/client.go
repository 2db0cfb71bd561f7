// File: dataprovider/platform/client.go
package platform

import (
	"Tradecurve/dataprovider"
	"Tradecurve/perf"
	utils "Tradecurve/utilities"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Client talks to the trading platform's internal performance API. It is the
// production implementation of dataprovider.PerformanceProvider.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	limiter    *rate.Limiter
	logger     *utils.Logger
	cfg        *utils.PlatformConfig
	infoCache  *gocache.Cache
}

// --- Wire structs for the platform API responses ---

type entityResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange"`
	QuoteCurrency string   `json:"quote_currency"`
	InitialEquity float64  `json:"initial_equity"`
	BaselinePrice *float64 `json:"baseline_price"`
	CreatedAt     string   `json:"created_at"`
}

type equitySampleDTO struct {
	Timestamp       string    `json:"timestamp"`
	Equity          *float64  `json:"equity,omitempty"`
	BenchmarkReturn *float64  `json:"benchmark_return,omitempty"`
	StockPrice      *float64  `json:"stock_price,omitempty"`
	StockBalance    *float64  `json:"stock_balance,omitempty"`
	OHLCV           *ohlcvDTO `json:"ohlcv,omitempty"`
}

type ohlcvDTO struct {
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Volume   *float64 `json:"volume,omitempty"`
	Final    *bool    `json:"final,omitempty"`
	Coverage *float64 `json:"coverage,omitempty"`
}

type equityCurveResponse struct {
	EntityID  string            `json:"entity_id"`
	Timeframe string            `json:"timeframe"`
	Samples   []equitySampleDTO `json:"samples"`
}

type logEntryDTO struct {
	EventTime string                 `json:"event_time"`
	Kind      string                 `json:"type"`
	Message   string                 `json:"message"`
	Info      map[string]interface{} `json:"info,omitempty"`
}

type tradingLogResponse struct {
	EntityID string        `json:"entity_id"`
	Entries  []logEntryDTO `json:"entries"`
}

type pingResponse struct {
	Status string `json:"status"`
}

func NewClient(cfg *utils.AppConfig, logger *utils.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("platform client: AppConfig cannot be nil")
	}
	if logger == nil {
		logger = utils.NewLogger(utils.Info)
		logger.LogWarn("Platform Client: Logger not provided, using default logger.")
	}

	pCfg := &cfg.Platform
	if pCfg.BaseURL == "" {
		return nil, errors.New("platform client: BaseURL is required in PlatformConfig")
	}

	if pCfg.RateLimitPerSec <= 0 {
		pCfg.RateLimitPerSec = 2.0
		logger.LogWarn("Platform Client: Invalid RateLimitPerSec, defaulting to 2.0")
	}
	if pCfg.RateLimitBurst <= 0 {
		pCfg.RateLimitBurst = 1
		logger.LogWarn("Platform Client: Invalid RateLimitBurst, defaulting to 1")
	}
	if pCfg.RequestTimeoutSec <= 0 {
		pCfg.RequestTimeoutSec = 10
		logger.LogWarn("Platform Client: Invalid RequestTimeoutSec, defaulting to 10 seconds")
	}
	if pCfg.EntityInfoTTLMinutes <= 0 {
		pCfg.EntityInfoTTLMinutes = 15
		logger.LogWarn("Platform Client: Invalid EntityInfoTTLMinutes, defaulting to 15 minutes")
	}

	infoTTL := time.Duration(pCfg.EntityInfoTTLMinutes) * time.Minute
	client := &Client{
		BaseURL:    pCfg.BaseURL,
		APIKey:     pCfg.APIKey,
		HTTPClient: &http.Client{Timeout: time.Duration(pCfg.RequestTimeoutSec) * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(pCfg.RateLimitPerSec), pCfg.RateLimitBurst),
		logger:     logger,
		cfg:        pCfg,
		infoCache:  gocache.New(infoTTL, 2*infoTTL),
	}

	logger.LogInfo("Platform client initialized with URL: %s, RateLimit: %.2f req/sec", client.BaseURL, pCfg.RateLimitPerSec)

	return client, nil
}

// request handles rate limiting, auth, retries and JSON decoding for one GET.
func (c *Client) request(ctx context.Context, endpoint string, queryParams url.Values, result interface{}) error {
	if ctx == nil {
		c.logger.LogWarn("Platform Client: request called with nil context for endpoint %s. Using background context.", endpoint)
		ctx = context.Background()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.LogError("Platform Client: Rate limiter wait error for endpoint %s: %v", endpoint, err)
		return fmt.Errorf("rate limiter error for endpoint %s: %w", endpoint, err)
	}

	fullURL := c.BaseURL + endpoint
	if !strings.HasPrefix(endpoint, "/") && !strings.HasSuffix(c.BaseURL, "/") {
		fullURL = c.BaseURL + "/" + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		c.logger.LogError("Platform Client: Error creating request for %s: %v", fullURL, err)
		return fmt.Errorf("failed to create request for %s: %w", fullURL, err)
	}

	if len(queryParams) > 0 {
		req.URL.RawQuery = queryParams.Encode()
	}

	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TradecurveBot/1.0")
	c.logger.LogDebug("Platform Request: %s %s", req.Method, req.URL.String())

	maxRetries := c.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	retryDelay := 2 * time.Second
	if c.cfg.RetryDelaySec > 0 {
		retryDelay = time.Duration(c.cfg.RetryDelaySec) * time.Second
	}

	return utils.DoJSONRequest(c.HTTPClient, req, maxRetries, retryDelay, result)
}

// GetEntityInfo returns the identity and ROI baseline for one entity. Results
// are cached in-memory; entity metadata changes rarely but the dashboard asks
// for it on every refresh cycle.
func (c *Client) GetEntityInfo(ctx context.Context, entityID string) (dataprovider.EntityInfo, error) {
	if entityID == "" {
		return dataprovider.EntityInfo{}, errors.New("platform client: entityID cannot be empty")
	}
	if cached, found := c.infoCache.Get(entityID); found {
		if info, ok := cached.(dataprovider.EntityInfo); ok {
			c.logger.LogDebug("Platform Client: entity info cache hit for %s", entityID)
			return info, nil
		}
	}

	var resp entityResponse
	endpoint := fmt.Sprintf("/v1/entities/%s", url.PathEscape(entityID))
	if err := c.request(ctx, endpoint, nil, &resp); err != nil {
		return dataprovider.EntityInfo{}, fmt.Errorf("failed to fetch entity info for %s: %w", entityID, err)
	}

	info := dataprovider.EntityInfo{
		ID:            resp.ID,
		Name:          resp.Name,
		Exchange:      resp.Exchange,
		QuoteCurrency: resp.QuoteCurrency,
		InitialEquity: resp.InitialEquity,
		BaselinePrice: resp.BaselinePrice,
	}
	if resp.CreatedAt != "" {
		createdAt, err := time.Parse(time.RFC3339, resp.CreatedAt)
		if err != nil {
			c.logger.LogWarn("Platform Client: unparsable created_at %q for entity %s", resp.CreatedAt, entityID)
		} else {
			info.CreatedAt = createdAt
		}
	}

	c.infoCache.SetDefault(entityID, info)
	return info, nil
}

// GetEquitySeries fetches the raw equity curve for one entity and timeframe.
func (c *Client) GetEquitySeries(ctx context.Context, q dataprovider.SeriesQuery) ([]perf.RawEquitySample, error) {
	if q.EntityID == "" {
		return nil, errors.New("platform client: entityID cannot be empty")
	}
	if !utils.IsSupportedTimeframe(q.Timeframe) {
		return nil, fmt.Errorf("platform client: unsupported timeframe %q", q.Timeframe)
	}

	params := url.Values{}
	params.Set("timeframe", q.Timeframe)
	if !q.Start.IsZero() {
		params.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.UTC().Format(time.RFC3339))
	}

	var resp equityCurveResponse
	endpoint := fmt.Sprintf("/v1/entities/%s/equity-curve", url.PathEscape(q.EntityID))
	if err := c.request(ctx, endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch equity curve for %s: %w", q.EntityID, err)
	}

	samples := make([]perf.RawEquitySample, 0, len(resp.Samples))
	for _, dto := range resp.Samples {
		samples = append(samples, toRawSample(dto))
	}
	c.logger.LogDebug("Platform Client: fetched %d equity samples for %s (%s)", len(samples), q.EntityID, q.Timeframe)
	return samples, nil
}

// GetTradingLog fetches the raw trading-log entries for one entity.
func (c *Client) GetTradingLog(ctx context.Context, q dataprovider.SeriesQuery) ([]perf.RawLogEvent, error) {
	if q.EntityID == "" {
		return nil, errors.New("platform client: entityID cannot be empty")
	}

	params := url.Values{}
	if !q.Start.IsZero() {
		params.Set("start", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		params.Set("end", q.End.UTC().Format(time.RFC3339))
	}

	var resp tradingLogResponse
	endpoint := fmt.Sprintf("/v1/entities/%s/trading-log", url.PathEscape(q.EntityID))
	if err := c.request(ctx, endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch trading log for %s: %w", q.EntityID, err)
	}

	events := make([]perf.RawLogEvent, 0, len(resp.Entries))
	for _, dto := range resp.Entries {
		events = append(events, perf.RawLogEvent{
			EventTime: dto.EventTime,
			Kind:      dto.Kind,
			Message:   dto.Message,
			Info:      eventInfoFromWire(dto.Info),
		})
	}
	c.logger.LogDebug("Platform Client: fetched %d trading-log entries for %s", len(events), q.EntityID)
	return events, nil
}

// Ping checks platform API reachability. Used by the pre-flight check at
// startup and by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var resp pingResponse
	if err := c.request(ctx, "/v1/ping", nil, &resp); err != nil {
		return fmt.Errorf("platform ping failed: %w", err)
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("platform ping returned status %q", resp.Status)
	}
	return nil
}

func toRawSample(dto equitySampleDTO) perf.RawEquitySample {
	smp := perf.RawEquitySample{
		Timestamp:       dto.Timestamp,
		Equity:          dto.Equity,
		BenchmarkReturn: dto.BenchmarkReturn,
		StockPrice:      dto.StockPrice,
		StockBalance:    dto.StockBalance,
	}
	if dto.OHLCV != nil {
		smp.OHLCV = &perf.RawOHLCV{
			Open:     dto.OHLCV.Open,
			High:     dto.OHLCV.High,
			Low:      dto.OHLCV.Low,
			Close:    dto.OHLCV.Close,
			Volume:   dto.OHLCV.Volume,
			Final:    dto.OHLCV.Final,
			Coverage: dto.OHLCV.Coverage,
		}
	}
	return smp
}

// eventInfoFromWire pulls the price out of the free-form info object. The
// platform emits it as a number or a string depending on the producing
// service, so parsing stays tolerant.
func eventInfoFromWire(raw map[string]interface{}) *perf.EventInfo {
	if raw == nil {
		return nil
	}
	v, ok := raw["price"]
	if !ok {
		return nil
	}
	price, err := utils.ParseFloatFromInterface(v)
	if err != nil {
		return nil
	}
	return &perf.EventInfo{Price: &price}
}
