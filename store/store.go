package store

import (
	"context"
	"errors"
	"time"

	"sitepulse/api/models"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

// Writer appends records. There is no update or delete path.
type Writer interface {
	InsertPageView(ctx context.Context, pv *models.PageView) error
	InsertEvent(ctx context.Context, ev *models.Event) error
}

// Reader holds the read-only queries the aggregation engine is built on.
type Reader interface {
	CountPageViews(ctx context.Context) (uint64, error)
	CountUniqueVisitors(ctx context.Context) (uint64, error)
	// TopPages orders by views desc, then most recent view desc, then path.
	TopPages(ctx context.Context, limit int) ([]models.TopPathResult, error)
	ReferrerCounts(ctx context.Context) ([]models.ValueCount, error)
	UserAgentCounts(ctx context.Context) ([]models.ValueCount, error)
	// WindowStats covers page views with from <= occurred_at < to.
	WindowStats(ctx context.Context, from, to time.Time) (models.WindowStats, error)
	// Activity counts distinct session/address pairs across page views and
	// events with occurred_at >= since.
	Activity(ctx context.Context, since time.Time) (models.ActivityStats, error)
	TopEvents(ctx context.Context, limit int) ([]models.EventCount, error)
}

type EventStore interface {
	Writer
	Reader
	Ping(ctx context.Context) error
	Close() error
}
