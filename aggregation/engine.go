// Package aggregation answers read-only questions over the event store.
// Visitors and sessions are never stored; they are groupings computed here.
package aggregation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitepulse/api/device"
	"sitepulse/api/logger"
	"sitepulse/api/metrics"
	"sitepulse/api/models"
	"sitepulse/api/store"
)

const (
	TrendDays           = 7
	DefaultActiveWindow = 5 * time.Minute
	DefaultTopLimit     = 10
	MaxTopLimit         = 100

	trendLabelLayout = "2006-01-02"
)

// SnapshotCache stores the time-insensitive part of the dashboard.
type SnapshotCache interface {
	Get(ctx context.Context) (*models.Dashboard, bool, error)
	Set(ctx context.Context, d *models.Dashboard) error
}

type Engine struct {
	reader       store.Reader
	classifier   device.Classifier
	now          func() time.Time
	loc          *time.Location
	activeWindow time.Duration
	cache        SnapshotCache
	log          *logger.Logger
}

type Option func(*Engine)

// WithClock overrides the evaluation time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used for calendar-day buckets.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithActiveWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.activeWindow = d
		}
	}
}

func WithClassifier(c device.Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

func WithCache(c SnapshotCache) Option {
	return func(e *Engine) { e.cache = c }
}

func New(reader store.Reader, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		reader:       reader,
		classifier:   device.Heuristic,
		now:          time.Now,
		loc:          time.Local,
		activeWindow: DefaultActiveWindow,
		log:          log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// observe records the latency of one named query.
func observe(query string, start time.Time) {
	metrics.AggregationDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

func (e *Engine) TotalViews(ctx context.Context) (uint64, error) {
	defer observe("total_views", time.Now())
	return e.reader.CountPageViews(ctx)
}

// UniqueVisitors counts distinct hashed addresses. Shared addresses undercount.
func (e *Engine) UniqueVisitors(ctx context.Context) (uint64, error) {
	defer observe("unique_visitors", time.Now())
	return e.reader.CountUniqueVisitors(ctx)
}

func (e *Engine) TopPages(ctx context.Context, limit int) ([]models.TopPathResult, error) {
	defer observe("top_pages", time.Now())
	return e.reader.TopPages(ctx, clampLimit(limit))
}

func (e *Engine) TopEvents(ctx context.Context, limit int) ([]models.EventCount, error) {
	defer observe("top_events", time.Now())
	return e.reader.TopEvents(ctx, clampLimit(limit))
}

func (e *Engine) TrafficSources(ctx context.Context) ([]models.TrafficSource, error) {
	defer observe("traffic_sources", time.Now())
	counts, err := e.reader.ReferrerCounts(ctx)
	if err != nil {
		return nil, err
	}
	return groupSources(counts), nil
}

// Devices always returns every category, zero-filled.
func (e *Engine) Devices(ctx context.Context) (map[string]uint64, error) {
	defer observe("devices", time.Now())
	counts, err := e.reader.UserAgentCounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(device.Categories))
	for _, c := range device.Categories {
		out[string(c)] = 0
	}
	for _, vc := range counts {
		out[string(e.classifier.Classify(vc.Value))] += vc.Count
	}
	return out, nil
}

// Trend returns TrendDays calendar days ending today in the engine's zone,
// oldest first. Days without records are zero.
func (e *Engine) Trend(ctx context.Context) (models.Trend, error) {
	defer observe("trend", time.Now())

	now := e.now().In(e.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)

	trend := models.Trend{
		Labels:   make([]string, 0, TrendDays),
		Views:    make([]uint64, 0, TrendDays),
		Visitors: make([]uint64, 0, TrendDays),
	}
	for i := TrendDays - 1; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)
		ws, err := e.reader.WindowStats(ctx, from, to)
		if err != nil {
			return models.Trend{}, fmt.Errorf("trend day %s: %w", from.Format(trendLabelLayout), err)
		}
		trend.Labels = append(trend.Labels, from.Format(trendLabelLayout))
		trend.Views = append(trend.Views, ws.Views)
		trend.Visitors = append(trend.Visitors, ws.Visitors)
	}
	return trend, nil
}

// ActiveNow is evaluated against the current time on every call.
func (e *Engine) ActiveNow(ctx context.Context) (models.ActivityStats, error) {
	defer observe("active_now", time.Now())
	return e.reader.Activity(ctx, e.now().Add(-e.activeWindow))
}

// Overview carries placeholder zeros for bounce rate and session duration;
// neither is computed from session boundaries yet.
func (e *Engine) Overview(ctx context.Context) (models.Overview, error) {
	total, err := e.TotalViews(ctx)
	if err != nil {
		return models.Overview{}, err
	}
	visitors, err := e.UniqueVisitors(ctx)
	if err != nil {
		return models.Overview{}, err
	}
	pages, err := e.TopPages(ctx, DefaultTopLimit)
	if err != nil {
		return models.Overview{}, err
	}
	sources, err := e.TrafficSources(ctx)
	if err != nil {
		return models.Overview{}, err
	}

	return models.Overview{
		TotalViews:         total,
		UniqueVisitors:     visitors,
		BounceRate:         0,
		AvgSessionDuration: 0,
		TopPages:           pages,
		TrafficSources:     sources,
	}, nil
}

// Dashboard assembles the full document. The cacheable snapshot may come from
// the cache; realtime figures are always fresh.
func (e *Engine) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	d, err := e.cachedSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	realtime, err := e.ActiveNow(ctx)
	if err != nil {
		return nil, err
	}
	d.Realtime = realtime
	return d, nil
}

func (e *Engine) cachedSnapshot(ctx context.Context) (*models.Dashboard, error) {
	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx)
		switch {
		case err != nil:
			e.log.Warn("dashboard cache read failed", zap.Error(err))
		case ok:
			return cached, nil
		}
	}

	d, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, d); err != nil {
			e.log.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return d, nil
}

// Snapshot computes every dashboard section except realtime.
func (e *Engine) Snapshot(ctx context.Context) (*models.Dashboard, error) {
	overview, err := e.Overview(ctx)
	if err != nil {
		return nil, err
	}
	trend, err := e.Trend(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := e.Devices(ctx)
	if err != nil {
		return nil, err
	}
	events, err := e.TopEvents(ctx, DefaultTopLimit)
	if err != nil {
		return nil, err
	}

	return &models.Dashboard{
		Overview:    overview,
		Trends:      trend,
		Devices:     devices,
		Events:      events,
		GeneratedAt: e.now().UTC(),
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTopLimit
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}
