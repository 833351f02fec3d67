package models

import "time"

type TopPathResult struct {
	Path     string    `json:"path"`
	Views    uint64    `json:"views"`
	LastSeen time.Time `json:"-"`
}

// ValueCount is a raw grouped column with its row count, e.g. referrer or user agent.
type ValueCount struct {
	Value string
	Count uint64
}

type TrafficSource struct {
	Source     string  `json:"source"`
	Visits     uint64  `json:"visits"`
	Percentage float64 `json:"percentage"`
}

type EventCount struct {
	EventName string `json:"eventName"`
	Count     uint64 `json:"count"`
}

// WindowStats counts page views and distinct hashed addresses in a time range.
type WindowStats struct {
	Views    uint64
	Visitors uint64
}

// ActivityStats describes activity inside the trailing "active now" window.
type ActivityStats struct {
	ActiveUsers      uint64 `json:"activeUsers"`
	CurrentPageViews uint64 `json:"currentPageViews"`
}

type Overview struct {
	TotalViews         uint64          `json:"totalViews"`
	UniqueVisitors     uint64          `json:"uniqueVisitors"`
	BounceRate         float64         `json:"bounceRate"`
	AvgSessionDuration float64         `json:"avgSessionDuration"`
	TopPages           []TopPathResult `json:"topPages"`
	TrafficSources     []TrafficSource `json:"trafficSources"`
}

// Trend is a fixed-length, gap-free daily series, oldest day first.
type Trend struct {
	Labels   []string `json:"labels"`
	Views    []uint64 `json:"views"`
	Visitors []uint64 `json:"visitors"`
}

// Dashboard is the document served to the administrative surface. Its shape
// is stable: every field is always present.
type Dashboard struct {
	Overview    Overview          `json:"overview"`
	Trends      Trend             `json:"trends"`
	Devices     map[string]uint64 `json:"devices"`
	Realtime    ActivityStats     `json:"realtime"`
	Events      []EventCount      `json:"events"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
