// api/store/clickhouse_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitepulse/api/database"
	"sitepulse/api/logger"
	"sitepulse/api/models"
)

var clickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS page_views (
		path        String,
		referrer    Nullable(String),
		user_agent  Nullable(String),
		ip_hash     String,
		session_id  Nullable(String),
		occurred_at DateTime64(6, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (occurred_at, path)`,
	`CREATE TABLE IF NOT EXISTS events (
		event_name  LowCardinality(String),
		event_data  String,
		path        String,
		ip_hash     String,
		session_id  Nullable(String),
		occurred_at DateTime64(6, 'UTC')
	) ENGINE = MergeTree
	ORDER BY (event_name, occurred_at)`,
}

// ClickHouseStore keeps page views and events in two MergeTree tables.
type ClickHouseStore struct {
	DB  *database.ClickHouseClient
	log *logger.Logger
}

func NewClickHouseStore(ctx context.Context, chClient *database.ClickHouseClient, log *logger.Logger) (*ClickHouseStore, error) {
	s := &ClickHouseStore{DB: chClient, log: log}
	for _, ddl := range clickHouseSchema {
		if err := chClient.Conn.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to apply ClickHouse schema: %w", err)
		}
	}
	return s, nil
}

func (s *ClickHouseStore) InsertPageView(ctx context.Context, pv *models.PageView) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO page_views (path, referrer, user_agent, ip_hash, session_id, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page view insert: %w", err)
	}

	if err := batch.Append(pv.Path, pv.Referrer, pv.UserAgent, pv.IPHash, pv.SessionID, pv.OccurredAt.UTC()); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to append page view: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send page view: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) InsertEvent(ctx context.Context, ev *models.Event) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO events (event_name, event_data, path, ip_hash, session_id, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	if err := batch.Append(ev.EventName, ev.EventData.String(), ev.Path, ev.IPHash, ev.SessionID, ev.OccurredAt.UTC()); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to append event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) CountPageViews(ctx context.Context) (uint64, error) {
	var total uint64
	if err := s.DB.Conn.QueryRow(ctx, `SELECT count() FROM page_views`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query total views: %w", err)
	}
	return total, nil
}

func (s *ClickHouseStore) CountUniqueVisitors(ctx context.Context) (uint64, error) {
	var visitors uint64
	if err := s.DB.Conn.QueryRow(ctx, `SELECT uniqExact(ip_hash) FROM page_views`).Scan(&visitors); err != nil {
		return 0, fmt.Errorf("failed to query unique visitors: %w", err)
	}
	return visitors, nil
}

func (s *ClickHouseStore) TopPages(ctx context.Context, limit int) ([]models.TopPathResult, error) {
	query := `
		SELECT path, count() AS views, max(occurred_at) AS last_seen
		FROM page_views
		GROUP BY path
		ORDER BY views DESC, last_seen DESC, path ASC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	results := []models.TopPathResult{}
	for rows.Next() {
		var r models.TopPathResult
		if err := rows.Scan(&r.Path, &r.Views, &r.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan top page path: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) ReferrerCounts(ctx context.Context) ([]models.ValueCount, error) {
	return s.valueCounts(ctx, "referrer")
}

func (s *ClickHouseStore) UserAgentCounts(ctx context.Context) ([]models.ValueCount, error) {
	return s.valueCounts(ctx, "user_agent")
}

// valueCounts groups page views by a nullable column. column is never user input.
func (s *ClickHouseStore) valueCounts(ctx context.Context, column string) ([]models.ValueCount, error) {
	query := fmt.Sprintf(`
		SELECT ifNull(%s, '') AS val, count() AS c
		FROM page_views
		GROUP BY val
	`, column)

	rows, err := s.DB.Conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", column, err)
	}
	defer rows.Close()

	results := []models.ValueCount{}
	for rows.Next() {
		var vc models.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		results = append(results, vc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for %s counts: %w", column, err)
	}
	return results, nil
}

func (s *ClickHouseStore) WindowStats(ctx context.Context, from, to time.Time) (models.WindowStats, error) {
	var ws models.WindowStats
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT count(), uniqExact(ip_hash)
		FROM page_views
		WHERE occurred_at >= ? AND occurred_at < ?
	`, from.UTC(), to.UTC()).Scan(&ws.Views, &ws.Visitors)
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("failed to query window stats: %w", err)
	}
	return ws, nil
}

func (s *ClickHouseStore) Activity(ctx context.Context, since time.Time) (models.ActivityStats, error) {
	var as models.ActivityStats
	since = since.UTC()
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT uniqExact(sid, ip_hash), countIf(kind = 'pageview')
		FROM (
			SELECT ifNull(session_id, '') AS sid, ip_hash, 'pageview' AS kind
			FROM page_views WHERE occurred_at >= ?
			UNION ALL
			SELECT ifNull(session_id, '') AS sid, ip_hash, 'event' AS kind
			FROM events WHERE occurred_at >= ?
		)
	`, since, since).Scan(&as.ActiveUsers, &as.CurrentPageViews)
	if err != nil {
		return models.ActivityStats{}, fmt.Errorf("failed to query active users: %w", err)
	}
	return as, nil
}

func (s *ClickHouseStore) TopEvents(ctx context.Context, limit int) ([]models.EventCount, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT event_name, count() AS c
		FROM events
		GROUP BY event_name
		ORDER BY c DESC, event_name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top events: %w", err)
	}
	defer rows.Close()

	results := []models.EventCount{}
	for rows.Next() {
		var ec models.EventCount
		if err := rows.Scan(&ec.EventName, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan top event: %w", err)
		}
		results = append(results, ec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top events: %w", err)
	}
	return results, nil
}

func (s *ClickHouseStore) Ping(ctx context.Context) error {
	return s.DB.Conn.Ping(ctx)
}

func (s *ClickHouseStore) Close() error {
	s.log.Debug("closing ClickHouse event store", zap.String("backend", "clickhouse"))
	return s.DB.Close()
}

var _ EventStore = (*ClickHouseStore)(nil)
