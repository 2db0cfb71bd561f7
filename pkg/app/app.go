package app

import (
	"Tradecurve/dataprovider"
	"Tradecurve/dataprovider/platform"
	"Tradecurve/notification/discord"
	"Tradecurve/perf"
	"Tradecurve/utilities"
	"Tradecurve/web"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLookbackDays = 90
	maxLookbackDays     = 365
)

// entityState is everything the dashboard tracks for one entity. All fields
// are guarded by DashboardState.stateMutex.
type entityState struct {
	info        dataprovider.EntityInfo
	hasInfo     bool
	timeframe   string
	dataset     *perf.Dataset
	generation  uint64
	lastChanged bool
	lastRefresh time.Time
	lastAlert   time.Time
}

// DashboardState owns the reconciled datasets and implements the controller
// interface the web package serves from.
type DashboardState struct {
	provider      dataprovider.PerformanceProvider
	cache         *dataprovider.SQLiteCache
	discordClient *discord.Client
	logger        *utilities.Logger
	config        *utilities.AppConfig
	runCtx        context.Context
	entities      map[string]*entityState
	entityOrder   []string
	stateMutex    sync.RWMutex
	platformOK    bool
	lastRefresh   time.Time
}

type drawdownAlert struct {
	entityID  string
	name      string
	timeframe string
	metrics   perf.TradingMetrics
}

func Run(ctx context.Context, cfg *utilities.AppConfig, logger *utilities.Logger) error {
	if len(cfg.Dashboard.EntityIDs) == 0 {
		return errors.New("pre-flight check failed: no entity_ids configured in config.json")
	}
	if cfg.Dashboard.RefreshIntervalSec <= 0 {
		return errors.New("pre-flight check failed: dashboard.refresh_interval_sec must be a positive integer")
	}
	if !utilities.IsSupportedTimeframe(cfg.Dashboard.DefaultTimeframe) {
		return fmt.Errorf("pre-flight check failed: unsupported dashboard.default_timeframe %q", cfg.Dashboard.DefaultTimeframe)
	}

	discordClient := discord.NewClient(cfg.Discord.WebhookURL)
	discordClient.SendMessage(fmt.Sprintf("✅ **Tradecurve v%s Starting Up**", cfg.Version))
	defer discordClient.SendMessage("🛑 **Tradecurve Shutting Down**")

	logger.LogInfo("AppRun: Starting pre-flight checks...")

	sqliteCache, err := dataprovider.NewSQLiteCache(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: sqlite cache init failed: %w", err)
	}
	defer sqliteCache.Close()

	platformClient, err := platform.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize platform client: %w", err)
	}

	state := &DashboardState{
		provider:      platformClient,
		cache:         sqliteCache,
		discordClient: discordClient,
		logger:        logger,
		config:        cfg,
		runCtx:        ctx,
		entities:      make(map[string]*entityState),
	}
	for _, entityID := range cfg.Dashboard.EntityIDs {
		if _, dup := state.entities[entityID]; dup {
			logger.LogWarn("AppRun: entity %s listed twice in config, ignoring duplicate.", entityID)
			continue
		}
		state.entities[entityID] = &entityState{timeframe: cfg.Dashboard.DefaultTimeframe}
		state.entityOrder = append(state.entityOrder, entityID)
		logger.LogInfo("AppRun: tracking entity %s%s%s on %s", utilities.ColorYellow, entityID, utilities.ColorReset, cfg.Dashboard.DefaultTimeframe)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	pingErr := platformClient.Ping(pingCtx)
	cancelPing()
	if pingErr != nil {
		logger.LogError("Pre-Flight: platform API unreachable, continuing with cached data: %v", pingErr)
		discordClient.SendMessage("⚠️ **Warning:** Platform API failed the pre-flight ping. Serving cached data until it recovers.")
	} else {
		state.platformOK = true
		logger.LogInfo("Pre-Flight: platform API reachable.")
	}

	state.warmStart(ctx)

	sqliteCache.StartScheduledCleanup(ctx, 24*time.Hour, 2*state.lookback())

	web.StartWebServer(ctx, state)

	logger.LogInfo("AppRun: Pre-flight checks complete. Refreshing %d entities every %ds.", len(state.entityOrder), cfg.Dashboard.RefreshIntervalSec)
	state.refreshAll(ctx)

	ticker := time.NewTicker(time.Duration(cfg.Dashboard.RefreshIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state.refreshAll(ctx)
		}
	}
}

// lookback is the rolling window the dashboard reconciles.
func (s *DashboardState) lookback() time.Duration {
	days := s.config.Dashboard.LookbackDays
	if days <= 0 {
		days = defaultLookbackDays
	}
	days = utilities.MinInt(days, maxLookbackDays)
	return time.Duration(days) * 24 * time.Hour
}

// warmStart rebuilds datasets from the sqlite cache so dashboards have data
// before the first live fetch completes. Entity info still has to come from
// the platform; entities whose info fetch fails stay empty until a refresh
// cycle succeeds.
func (s *DashboardState) warmStart(ctx context.Context) {
	end := time.Now().UTC()
	start := end.Add(-s.lookback())

	for _, entityID := range s.entityOrder {
		info, err := s.provider.GetEntityInfo(ctx, entityID)
		if err != nil {
			s.logger.LogWarn("WarmStart [%s]: entity info unavailable, skipping: %v", entityID, err)
			continue
		}

		s.stateMutex.Lock()
		ent := s.entities[entityID]
		ent.info = info
		ent.hasInfo = true
		timeframe := ent.timeframe
		s.stateMutex.Unlock()

		samples, err := s.cache.GetEquitySamples(entityID, timeframe, start, end)
		if err != nil {
			s.logger.LogWarn("WarmStart [%s]: could not read cached samples: %v", entityID, err)
			continue
		}
		if len(samples) == 0 {
			continue
		}
		events, err := s.cache.GetTradingEvents(entityID, start, end)
		if err != nil {
			s.logger.LogWarn("WarmStart [%s]: could not read cached events: %v", entityID, err)
			events = nil
		}

		dataset, err := perf.BuildDataset(samples, events, timeframe, info.Baseline())
		if err != nil {
			s.logger.LogWarn("WarmStart [%s]: cached series rejected: %v", entityID, err)
			continue
		}

		s.stateMutex.Lock()
		ent.dataset = dataset
		ent.lastChanged = true
		s.stateMutex.Unlock()
		s.logger.LogInfo("WarmStart [%s]: restored %d points from cache.", entityID, len(dataset.Points))
	}
}

// refreshAll runs one reconciliation cycle over every tracked entity and
// updates the health flag from the outcome.
func (s *DashboardState) refreshAll(ctx context.Context) {
	healthy := true
	for _, entityID := range s.entityOrder {
		if ctx.Err() != nil {
			return
		}
		if err := s.refreshEntity(ctx, entityID); err != nil {
			healthy = false
		}
	}

	s.stateMutex.Lock()
	s.platformOK = healthy
	s.lastRefresh = time.Now().UTC()
	s.stateMutex.Unlock()
}

// refreshEntity fetches one entity's raw series, rebuilds its dataset and
// swaps it in if anything changed. The returned error covers platform
// failures only; a series the engine rejects is logged and dropped. A cycle
// that started before a timeframe switch is discarded when it lands, its
// generation stamp no longer matches.
func (s *DashboardState) refreshEntity(ctx context.Context, entityID string) error {
	cycle := uuid.NewString()[:8]

	s.stateMutex.RLock()
	ent, ok := s.entities[entityID]
	if !ok {
		s.stateMutex.RUnlock()
		return nil
	}
	timeframe := ent.timeframe
	generation := ent.generation
	s.stateMutex.RUnlock()

	end := time.Now().UTC()
	start := end.Add(-s.lookback())
	query := dataprovider.SeriesQuery{EntityID: entityID, Timeframe: timeframe, Start: start, End: end}

	info, err := s.provider.GetEntityInfo(ctx, entityID)
	if err != nil {
		s.logger.LogError("Refresh %s [%s]: entity info fetch failed: %v", cycle, entityID, err)
		return err
	}
	samples, err := s.provider.GetEquitySeries(ctx, query)
	if err != nil {
		s.logger.LogError("Refresh %s [%s]: equity curve fetch failed: %v", cycle, entityID, err)
		return err
	}
	events, err := s.provider.GetTradingLog(ctx, query)
	if err != nil {
		s.logger.LogError("Refresh %s [%s]: trading log fetch failed: %v", cycle, entityID, err)
		return err
	}

	// Some platform deployments ignore the start bound on the log endpoint.
	// Unparsable stamps are kept; the engine decides how to treat them.
	events = utilities.FilterAfter(events, func(ev perf.RawLogEvent) time.Time {
		if t, perr := time.Parse(time.RFC3339, ev.EventTime); perr == nil {
			return t
		}
		return end
	}, start)

	dataset, err := perf.BuildDataset(samples, events, timeframe, info.Baseline())
	if err != nil {
		s.logger.LogError("Refresh %s [%s]: reconciliation rejected the series: %v", cycle, entityID, err)
		return nil
	}

	if err := s.cache.SaveEquitySamples(entityID, timeframe, samples); err != nil {
		s.logger.LogWarn("Refresh %s [%s]: could not persist samples: %v", cycle, entityID, err)
	}
	if err := s.cache.SaveTradingEvents(entityID, events); err != nil {
		s.logger.LogWarn("Refresh %s [%s]: could not persist events: %v", cycle, entityID, err)
	}

	var alert *drawdownAlert

	s.stateMutex.Lock()
	ent, ok = s.entities[entityID]
	if !ok {
		s.stateMutex.Unlock()
		return nil
	}
	if ent.generation != generation {
		s.stateMutex.Unlock()
		s.logger.LogWarn("Refresh %s [%s]: discarding stale cycle, timeframe changed mid-fetch.", cycle, entityID)
		return nil
	}
	ent.info = info
	ent.hasInfo = true
	merged, changed := perf.Merge(ent.dataset, dataset)
	ent.dataset = merged
	ent.lastChanged = changed
	ent.lastRefresh = time.Now().UTC()
	if changed {
		alert = s.pendingAlertLocked(ent, entityID)
	}
	s.stateMutex.Unlock()

	if changed {
		s.logger.LogInfo("Refresh %s [%s]: dataset updated, %d points, ROI %.2f%%.", cycle, entityID, len(merged.Points), merged.Metrics.TotalROI)
	} else {
		s.logger.LogDebug("Refresh %s [%s]: no changes.", cycle, entityID)
	}

	if alert != nil {
		s.sendDrawdownAlert(*alert)
	}
	return nil
}

// pendingAlertLocked decides whether the entity just crossed the drawdown
// threshold and stamps the cooldown. Caller holds stateMutex.
func (s *DashboardState) pendingAlertLocked(ent *entityState, entityID string) *drawdownAlert {
	alerts := s.config.Alerts
	if !alerts.Enabled || alerts.DrawdownThresholdPercent <= 0 || ent.dataset == nil {
		return nil
	}
	if ent.dataset.Metrics.MaxDrawdown > -alerts.DrawdownThresholdPercent {
		return nil
	}
	cooldown := time.Duration(alerts.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	if !ent.lastAlert.IsZero() && time.Since(ent.lastAlert) < cooldown {
		return nil
	}
	ent.lastAlert = time.Now().UTC()

	name := ent.info.Name
	if name == "" {
		name = entityID
	}
	return &drawdownAlert{entityID: entityID, name: name, timeframe: ent.timeframe, metrics: ent.dataset.Metrics}
}

func (s *DashboardState) sendDrawdownAlert(alert drawdownAlert) {
	s.logger.LogWarn("%sALERT%s [%s]: max drawdown %.2f%% breached the %.2f%% threshold.",
		utilities.ColorRed, utilities.ColorReset, alert.entityID, alert.metrics.MaxDrawdown, s.config.Alerts.DrawdownThresholdPercent)
	go func() {
		if err := s.discordClient.NotifyDrawdownAlert(alert.name, alert.timeframe, alert.metrics); err != nil {
			s.logger.LogError("Alert [%s]: discord notification failed: %v", alert.entityID, err)
		}
	}()
}

// --- web.AppController implementation ---

func (s *DashboardState) GetDashboardData() web.DashboardData {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	entities := make([]web.EntitySummary, 0, len(s.entityOrder))
	for _, entityID := range s.entityOrder {
		ent := s.entities[entityID]
		summary := web.EntitySummary{
			ID:          entityID,
			Name:        displayName(ent, entityID),
			Timeframe:   ent.timeframe,
			LastRefresh: ent.lastRefresh,
		}
		if ent.dataset != nil {
			summary.Metrics = ent.dataset.Metrics
		}
		entities = append(entities, summary)
	}

	return web.DashboardData{
		AppName:       s.config.AppName,
		Version:       s.config.Version,
		QuoteCurrency: s.config.Platform.QuoteCurrency,
		Entities:      entities,
	}
}

func (s *DashboardState) GetEntityPerformance(entityID string) (web.EntityPerformance, error) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	ent, ok := s.entities[entityID]
	if !ok {
		return web.EntityPerformance{}, web.ErrUnknownEntity
	}
	data := web.EntityPerformance{
		EntityID:    entityID,
		Name:        displayName(ent, entityID),
		Timeframe:   ent.timeframe,
		LastRefresh: ent.lastRefresh,
		Changed:     ent.lastChanged,
	}
	if ent.dataset != nil {
		data.Points = ent.dataset.Points
		data.Metrics = ent.dataset.Metrics
	}
	return data, nil
}

func (s *DashboardState) GetEntityCandles(entityID string) ([]perf.TradingCandlestickPoint, error) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	ent, ok := s.entities[entityID]
	if !ok {
		return nil, web.ErrUnknownEntity
	}
	if ent.dataset == nil {
		return nil, nil
	}
	return ent.dataset.Candles, nil
}

// SetEntityTimeframe switches an entity's chart resolution. The old dataset
// is dropped and the generation bumped so in-flight refreshes of the old
// series cannot land on the new one.
func (s *DashboardState) SetEntityTimeframe(entityID, timeframe string) error {
	if !utilities.IsSupportedTimeframe(timeframe) {
		return fmt.Errorf("unsupported timeframe: %s", timeframe)
	}

	s.stateMutex.Lock()
	ent, ok := s.entities[entityID]
	if !ok {
		s.stateMutex.Unlock()
		return web.ErrUnknownEntity
	}
	if ent.timeframe == timeframe {
		s.stateMutex.Unlock()
		return nil
	}
	ent.timeframe = timeframe
	ent.generation++
	ent.dataset = nil
	ent.lastChanged = false
	ent.lastRefresh = time.Time{}
	s.stateMutex.Unlock()

	s.logger.LogInfo("Timeframe [%s]: switched to %s, scheduling refetch.", entityID, timeframe)
	go func() {
		if err := s.refreshEntity(s.runCtx, entityID); err != nil {
			s.logger.LogError("Timeframe [%s]: refetch failed: %v", entityID, err)
		}
	}()
	return nil
}

func (s *DashboardState) Health() web.HealthStatus {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	status := "ok"
	if !s.platformOK {
		status = "degraded"
	}
	return web.HealthStatus{
		Status:          status,
		PlatformOK:      s.platformOK,
		TrackedEntities: len(s.entities),
		LastRefresh:     s.lastRefresh,
	}
}

func (s *DashboardState) GetConfig() utilities.AppConfig { return *s.config }

func (s *DashboardState) Logger() *utilities.Logger { return s.logger }

func displayName(ent *entityState, entityID string) string {
	if ent.hasInfo && ent.info.Name != "" {
		return ent.info.Name
	}
	return entityID
}
