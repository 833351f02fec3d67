// Package ingest turns one telemetry submission into exactly one stored record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitepulse/api/logger"
	"sitepulse/api/metrics"
	"sitepulse/api/models"
	"sitepulse/api/privacy"
	"sitepulse/api/session"
	"sitepulse/api/store"
)

const (
	// MaxBodyBytes bounds a single submission.
	MaxBodyBytes = 64 << 10

	MaxPathLength      = 2048
	MaxEventNameLength = 256

	// DefaultTimeout applies when the service is built without one.
	DefaultTimeout = 5 * time.Second
)

var (
	ErrInvalidPayload   = errors.New("invalid request body")
	ErrMissingPath      = errors.New("path is required")
	ErrMissingEventName = errors.New("event_name is required for events")
	ErrStore            = errors.New("failed to record submission")
)

// Submission is the ingestion request body. Every field except path is optional.
type Submission struct {
	Type      string           `json:"type"`
	Path      string           `json:"path"`
	Referrer  *string          `json:"referrer"`
	UserAgent *string          `json:"user_agent"`
	EventName string           `json:"event_name"`
	EventData models.EventData `json:"event_data"`
	// SessionID accepts any JSON value; anything but a UUID-shaped string
	// is stored as null.
	SessionID any `json:"session_id"`
}

// IsEvent reports whether the submission selects the event record path.
func (s *Submission) IsEvent() bool {
	return s.Type == models.KindEvent
}

type Service struct {
	store   store.Writer
	hasher  *privacy.Hasher
	clock   *Clock
	timeout time.Duration
	log     *logger.Logger
}

func NewService(w store.Writer, hasher *privacy.Hasher, clock *Clock, timeout time.Duration, log *logger.Logger) *Service {
	if clock == nil {
		clock = NewClock(nil)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{store: w, hasher: hasher, clock: clock, timeout: timeout, log: log}
}

// Ingest validates sub, derives the hashed client address from r and writes
// one record. It returns the kind of record written. Store failures are not
// retried.
func (s *Service) Ingest(ctx context.Context, r *http.Request, sub *Submission) (string, error) {
	path, err := NormalizePath(sub.Path)
	if err != nil {
		metrics.IngestFailures.WithLabelValues(metrics.ReasonInvalidPayload).Inc()
		return "", err
	}

	sessionID := normalizeSession(sub.SessionID)
	ipHash := s.hasher.HashRequest(r)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if sub.IsEvent() {
		name := truncate(strings.TrimSpace(sub.EventName), MaxEventNameLength)
		if name == "" {
			metrics.IngestFailures.WithLabelValues(metrics.ReasonInvalidPayload).Inc()
			return "", ErrMissingEventName
		}
		ev := &models.Event{
			EventName:  name,
			EventData:  sub.EventData,
			Path:       path,
			IPHash:     ipHash,
			SessionID:  sessionID,
			OccurredAt: s.clock.Now(),
		}
		if err := s.store.InsertEvent(ctx, ev); err != nil {
			return "", s.storeFailure(err, models.KindEvent)
		}
		metrics.IngestedRecords.WithLabelValues(models.KindEvent).Inc()
		return models.KindEvent, nil
	}

	userAgent := optional(sub.UserAgent)
	if userAgent == nil {
		userAgent = optional(stringPtr(r.UserAgent()))
	}
	pv := &models.PageView{
		Path:       path,
		Referrer:   optional(sub.Referrer),
		UserAgent:  userAgent,
		IPHash:     ipHash,
		SessionID:  sessionID,
		OccurredAt: s.clock.Now(),
	}
	if err := s.store.InsertPageView(ctx, pv); err != nil {
		return "", s.storeFailure(err, models.KindPageView)
	}
	metrics.IngestedRecords.WithLabelValues(models.KindPageView).Inc()
	return models.KindPageView, nil
}

func (s *Service) storeFailure(err error, kind string) error {
	reason := metrics.ReasonStore
	if errors.Is(err, context.DeadlineExceeded) {
		reason = metrics.ReasonTimeout
	}
	metrics.IngestFailures.WithLabelValues(reason).Inc()
	s.log.Error("failed to write record", zap.String("kind", kind), zap.String("reason", reason), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrStore, err)
}

// NormalizePath strips query and fragment, ensures a leading slash and bounds
// the length. Absolute URLs are reduced to their path.
func NormalizePath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
			if p == "" {
				p = "/"
			}
		}
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "", ErrMissingPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return truncate(p, MaxPathLength), nil
}

func normalizeSession(v any) *string {
	token, ok := v.(string)
	if !ok {
		return nil
	}
	return session.Normalize(token)
}

// optional maps empty and whitespace-only values to nil.
func optional(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func stringPtr(s string) *string { return &s }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
