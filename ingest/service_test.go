package ingest

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/privacy"
)

type recordingWriter struct {
	mu        sync.Mutex
	pageViews []*models.PageView
	events    []*models.Event
	err       error
}

func (w *recordingWriter) InsertPageView(_ context.Context, pv *models.PageView) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.pageViews = append(w.pageViews, pv)
	return nil
}

func (w *recordingWriter) InsertEvent(_ context.Context, ev *models.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.events = append(w.events, ev)
	return nil
}

func newService(w *recordingWriter) *Service {
	return NewService(w, privacy.NewHasher("test-salt"), nil, time.Second, logger.NewNop())
}

func TestIngestPageView(t *testing.T) {
	w := &recordingWriter{}
	svc := newService(w)

	r := httptest.NewRequest("POST", "/api/track", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	ua := "TestAgent/1.0"

	kind, err := svc.Ingest(context.Background(), r, &Submission{Path: "/parks", UserAgent: &ua})
	require.NoError(t, err)
	assert.Equal(t, models.KindPageView, kind)

	require.Len(t, w.pageViews, 1)
	pv := w.pageViews[0]
	assert.Equal(t, "/parks", pv.Path)
	assert.Nil(t, pv.Referrer)
	assert.Equal(t, ua, *pv.UserAgent)
	assert.Equal(t, privacy.Hash("203.0.113.7", "test-salt"), pv.IPHash)
	assert.NotContains(t, pv.IPHash, "203.0.113.7")
	assert.Nil(t, pv.SessionID)
	assert.False(t, pv.OccurredAt.IsZero())
	assert.Empty(t, w.events)
}

func TestIngestEvent(t *testing.T) {
	w := &recordingWriter{}
	svc := newService(w)
	r := httptest.NewRequest("POST", "/api/track", nil)

	kind, err := svc.Ingest(context.Background(), r, &Submission{
		Type:      "event",
		EventName: "file_download",
		EventData: models.EventData(`{"filename":"guide.pdf"}`),
		Path:      "/resources",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindEvent, kind)

	assert.Empty(t, w.pageViews)
	require.Len(t, w.events, 1)
	ev := w.events[0]
	assert.Equal(t, "file_download", ev.EventName)
	filename, ok := ev.EventData.Field("filename")
	require.True(t, ok)
	assert.JSONEq(t, `"guide.pdf"`, string(filename))
}

func TestIngestSessionID(t *testing.T) {
	valid := strings.ToUpper(gofakeit.UUID())
	tests := []struct {
		name string
		in   any
		want *string
	}{
		{name: "absent", in: nil},
		{name: "malformed", in: "not-a-uuid"},
		{name: "wrong type", in: 42.0},
		{name: "valid is lowercased", in: valid, want: stringPtr(strings.ToLower(valid))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			svc := newService(w)
			r := httptest.NewRequest("POST", "/api/track", nil)

			_, err := svc.Ingest(context.Background(), r, &Submission{Path: "/", SessionID: tt.in})
			require.NoError(t, err)
			require.Len(t, w.pageViews, 1)
			assert.Equal(t, tt.want, w.pageViews[0].SessionID)
		})
	}
}

func TestIngestFallsBackToRequestUserAgent(t *testing.T) {
	w := &recordingWriter{}
	svc := newService(w)
	r := httptest.NewRequest("POST", "/api/track", nil)
	r.Header.Set("User-Agent", "HeaderAgent/2.0")
	blank := "  "

	_, err := svc.Ingest(context.Background(), r, &Submission{Path: "/", UserAgent: &blank, Referrer: &blank})
	require.NoError(t, err)
	require.Len(t, w.pageViews, 1)
	assert.Equal(t, "HeaderAgent/2.0", *w.pageViews[0].UserAgent)
	assert.Nil(t, w.pageViews[0].Referrer)
}

func TestIngestValidation(t *testing.T) {
	svc := newService(&recordingWriter{})
	r := httptest.NewRequest("POST", "/api/track", nil)

	_, err := svc.Ingest(context.Background(), r, &Submission{Path: "  "})
	assert.ErrorIs(t, err, ErrMissingPath)

	_, err = svc.Ingest(context.Background(), r, &Submission{Type: "event", Path: "/"})
	assert.ErrorIs(t, err, ErrMissingEventName)
}

func TestIngestStoreFailure(t *testing.T) {
	cause := errors.New("connection refused")
	svc := newService(&recordingWriter{err: cause})
	r := httptest.NewRequest("POST", "/api/track", nil)

	_, err := svc.Ingest(context.Background(), r, &Submission{Path: "/"})
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "/parks", want: "/parks"},
		{in: "parks", want: "/parks"},
		{in: "/parks?utm_source=x#map", want: "/parks"},
		{in: "https://example.com/about?x=1", want: "/about"},
		{in: "https://example.com", want: "/"},
		{in: "?only=query", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizePath(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrMissingPath, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	long, err := NormalizePath("/" + strings.Repeat("a", 5000))
	require.NoError(t, err)
	assert.Len(t, long, MaxPathLength)
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(func() time.Time { return fixed })

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, fixed, first)
	assert.True(t, second.After(first))
	assert.Equal(t, time.Microsecond, second.Sub(first))
}

func TestClockConcurrentCallsAreUnique(t *testing.T) {
	clock := NewClock(nil)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[time.Time]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := clock.Now()
			mu.Lock()
			seen[ts] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}
