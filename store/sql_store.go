// api/store/sql_store.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitepulse/api/database"
	"sitepulse/api/logger"
	"sitepulse/api/models"
)

var sqlSchema = map[string][]string{
	database.DialectSQLite: {
		`CREATE TABLE IF NOT EXISTS page_views (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			path        TEXT NOT NULL,
			referrer    TEXT NULL,
			user_agent  TEXT NULL,
			ip_hash     TEXT NOT NULL,
			session_id  TEXT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_views_occurred_at ON page_views (occurred_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			event_name  TEXT NOT NULL,
			event_data  TEXT NOT NULL,
			path        TEXT NOT NULL,
			ip_hash     TEXT NOT NULL,
			session_id  TEXT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at)`,
	},
	database.DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS page_views (
			id          BIGSERIAL PRIMARY KEY,
			path        TEXT NOT NULL,
			referrer    TEXT NULL,
			user_agent  TEXT NULL,
			ip_hash     TEXT NOT NULL,
			session_id  TEXT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_page_views_occurred_at ON page_views (occurred_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			id          BIGSERIAL PRIMARY KEY,
			event_name  TEXT NOT NULL,
			event_data  JSONB NOT NULL,
			path        TEXT NOT NULL,
			ip_hash     TEXT NOT NULL,
			session_id  TEXT NULL,
			occurred_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events (occurred_at)`,
	},
}

// SQLStore keeps records in a relational database. Timestamps are stored as
// UTC unix microseconds so range filters compare integers on every dialect.
type SQLStore struct {
	DB  *database.DBClient
	log *logger.Logger
}

func NewSQLStore(ctx context.Context, dbClient *database.DBClient, log *logger.Logger) (*SQLStore, error) {
	ddl, ok := sqlSchema[dbClient.Dialect]
	if !ok {
		return nil, fmt.Errorf("%w: dialect %q", ErrUnsupportedDriver, dbClient.Dialect)
	}
	for _, stmt := range ddl {
		if _, err := dbClient.DB.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to apply %s schema: %w", dbClient.Dialect, err)
		}
	}
	return &SQLStore{DB: dbClient, log: log}, nil
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.DB.Dialect != database.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

func (s *SQLStore) InsertPageView(ctx context.Context, pv *models.PageView) error {
	query := s.rebind(`
		INSERT INTO page_views (path, referrer, user_agent, ip_hash, session_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.DB.DB.ExecContext(ctx, query,
		pv.Path, pv.Referrer, pv.UserAgent, pv.IPHash, pv.SessionID, toMicros(pv.OccurredAt))
	if err != nil {
		return fmt.Errorf("failed to insert page view: %w", err)
	}
	return nil
}

func (s *SQLStore) InsertEvent(ctx context.Context, ev *models.Event) error {
	query := s.rebind(`
		INSERT INTO events (event_name, event_data, path, ip_hash, session_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.DB.DB.ExecContext(ctx, query,
		ev.EventName, ev.EventData.String(), ev.Path, ev.IPHash, ev.SessionID, toMicros(ev.OccurredAt))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *SQLStore) CountPageViews(ctx context.Context) (uint64, error) {
	var total int64
	if err := s.DB.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_views`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query total views: %w", err)
	}
	return uint64(total), nil
}

func (s *SQLStore) CountUniqueVisitors(ctx context.Context) (uint64, error) {
	var visitors int64
	if err := s.DB.DB.QueryRowContext(ctx, `SELECT COUNT(DISTINCT ip_hash) FROM page_views`).Scan(&visitors); err != nil {
		return 0, fmt.Errorf("failed to query unique visitors: %w", err)
	}
	return uint64(visitors), nil
}

func (s *SQLStore) TopPages(ctx context.Context, limit int) ([]models.TopPathResult, error) {
	query := s.rebind(`
		SELECT path, COUNT(*) AS views, MAX(occurred_at) AS last_seen
		FROM page_views
		GROUP BY path
		ORDER BY views DESC, last_seen DESC, path ASC
		LIMIT ?
	`)
	rows, err := s.DB.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top page paths: %w", err)
	}
	defer rows.Close()

	results := []models.TopPathResult{}
	for rows.Next() {
		var (
			r        models.TopPathResult
			views    int64
			lastSeen int64
		)
		if err := rows.Scan(&r.Path, &views, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan top page path: %w", err)
		}
		r.Views = uint64(views)
		r.LastSeen = fromMicros(lastSeen)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top page paths: %w", err)
	}
	return results, nil
}

func (s *SQLStore) ReferrerCounts(ctx context.Context) ([]models.ValueCount, error) {
	return s.valueCounts(ctx, "referrer")
}

func (s *SQLStore) UserAgentCounts(ctx context.Context) ([]models.ValueCount, error) {
	return s.valueCounts(ctx, "user_agent")
}

// valueCounts groups page views by a nullable column. column is never user input.
func (s *SQLStore) valueCounts(ctx context.Context, column string) ([]models.ValueCount, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(%s, '') AS value, COUNT(*) AS c
		FROM page_views
		GROUP BY COALESCE(%s, '')
	`, column, column)

	rows, err := s.DB.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", column, err)
	}
	defer rows.Close()

	results := []models.ValueCount{}
	for rows.Next() {
		var (
			vc    models.ValueCount
			count int64
		)
		if err := rows.Scan(&vc.Value, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		vc.Count = uint64(count)
		results = append(results, vc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for %s counts: %w", column, err)
	}
	return results, nil
}

func (s *SQLStore) WindowStats(ctx context.Context, from, to time.Time) (models.WindowStats, error) {
	var views, visitors int64
	query := s.rebind(`
		SELECT COUNT(*), COUNT(DISTINCT ip_hash)
		FROM page_views
		WHERE occurred_at >= ? AND occurred_at < ?
	`)
	if err := s.DB.DB.QueryRowContext(ctx, query, toMicros(from), toMicros(to)).Scan(&views, &visitors); err != nil {
		return models.WindowStats{}, fmt.Errorf("failed to query window stats: %w", err)
	}
	return models.WindowStats{Views: uint64(views), Visitors: uint64(visitors)}, nil
}

func (s *SQLStore) Activity(ctx context.Context, since time.Time) (models.ActivityStats, error) {
	var active, current sql.NullInt64
	query := s.rebind(`
		SELECT
			COUNT(DISTINCT COALESCE(session_id, '') || '|' || ip_hash),
			SUM(CASE WHEN kind = 'pageview' THEN 1 ELSE 0 END)
		FROM (
			SELECT session_id, ip_hash, 'pageview' AS kind
			FROM page_views WHERE occurred_at >= ?
			UNION ALL
			SELECT session_id, ip_hash, 'event' AS kind
			FROM events WHERE occurred_at >= ?
		) recent
	`)
	cutoff := toMicros(since)
	if err := s.DB.DB.QueryRowContext(ctx, query, cutoff, cutoff).Scan(&active, &current); err != nil {
		return models.ActivityStats{}, fmt.Errorf("failed to query active users: %w", err)
	}
	// SUM over zero rows is NULL.
	return models.ActivityStats{
		ActiveUsers:      uint64(active.Int64),
		CurrentPageViews: uint64(current.Int64),
	}, nil
}

func (s *SQLStore) TopEvents(ctx context.Context, limit int) ([]models.EventCount, error) {
	query := s.rebind(`
		SELECT event_name, COUNT(*) AS c
		FROM events
		GROUP BY event_name
		ORDER BY c DESC, event_name ASC
		LIMIT ?
	`)
	rows, err := s.DB.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top events: %w", err)
	}
	defer rows.Close()

	results := []models.EventCount{}
	for rows.Next() {
		var (
			ec    models.EventCount
			count int64
		)
		if err := rows.Scan(&ec.EventName, &count); err != nil {
			return nil, fmt.Errorf("failed to scan top event: %w", err)
		}
		ec.Count = uint64(count)
		results = append(results, ec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top events: %w", err)
	}
	return results, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.DB.DB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	s.log.Debug("closing SQL event store", zap.String("dialect", s.DB.Dialect))
	return s.DB.Close()
}

var _ EventStore = (*SQLStore)(nil)
