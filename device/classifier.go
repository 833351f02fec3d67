package device

import "strings"

type Category string

const (
	Desktop Category = "desktop"
	Mobile  Category = "mobile"
	Tablet  Category = "tablet"
	Other   Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Desktop, Mobile, Tablet, Other}

// Classifier maps a raw user agent onto a Category. It is applied at read
// time, so swapping the heuristic needs no backfill.
type Classifier interface {
	Classify(userAgent string) Category
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(userAgent string) Category

func (f ClassifierFunc) Classify(userAgent string) Category {
	return f(userAgent)
}

var (
	botMarkers     = []string{"bot", "crawler", "spider", "slurp", "headless"}
	tabletMarkers  = []string{"ipad", "tablet", "kindle", "silk/", "playbook", "nexus 7", "nexus 10"}
	mobileMarkers  = []string{"mobi", "iphone", "ipod", "windows phone", "blackberry", "bb10", "opera mini", "iemobile", "webos"}
	desktopMarkers = []string{"windows nt", "macintosh", "mac os x", "x11", "linux", "cros "}
)

// Heuristic classifies by substring markers. Tablets are checked before
// phones because many tablet agents also carry phone markers.
var Heuristic Classifier = ClassifierFunc(classify)

func classify(userAgent string) Category {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" || containsAny(ua, botMarkers) {
		return Other
	}

	if containsAny(ua, tabletMarkers) {
		return Tablet
	}
	// Android tablets omit "Mobile".
	if strings.Contains(ua, "android") {
		if strings.Contains(ua, "mobile") {
			return Mobile
		}
		return Tablet
	}
	if containsAny(ua, mobileMarkers) {
		return Mobile
	}
	if containsAny(ua, desktopMarkers) {
		return Desktop
	}
	return Other
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
