package aggregation

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"sitepulse/api/models"
)

const (
	SourceDirect  = "direct"
	SourceUnknown = "unknown"
)

// NormalizeReferrer reduces a client-reported referrer to a bare host.
// Absent referrers are "direct"; values with no recoverable host are "unknown".
func NormalizeReferrer(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceDirect
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return SourceUnknown
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return SourceUnknown
	}
	return host
}

// groupSources merges raw referrer counts by normalized host, ordered by
// visits desc then source name.
func groupSources(counts []models.ValueCount) []models.TrafficSource {
	visits := make(map[string]uint64)
	var total uint64
	for _, vc := range counts {
		visits[NormalizeReferrer(vc.Value)] += vc.Count
		total += vc.Count
	}

	sources := make([]models.TrafficSource, 0, len(visits))
	for source, n := range visits {
		sources = append(sources, models.TrafficSource{
			Source:     source,
			Visits:     n,
			Percentage: Percentage(n, total),
		})
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Visits != sources[j].Visits {
			return sources[i].Visits > sources[j].Visits
		}
		return sources[i].Source < sources[j].Source
	})
	return sources
}

// Percentage returns count / max(total, 1) * 100, rounded to two decimals.
func Percentage(count, total uint64) float64 {
	if total == 0 {
		total = 1
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
