// Package analytics counts anonymous reads of content records. Visitors are
// identified only by a salted hash of their address and user agent; raw IPs
// are never stored.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/eringen/quill/content"
)

// View is a single read of a content record.
type View struct {
	Kind      content.Kind `json:"kind"`
	Slug      string       `json:"slug"`
	VisitorID string       `json:"-"`
	Referrer  string       `json:"referrer"`
	Browser   string       `json:"browser"`
	Device    string       `json:"device"`
	Bot       string       `json:"bot,omitempty"` // empty for human visitors
	At        time.Time    `json:"at"`
}

// Stats aggregates views over a period.
type Stats struct {
	Period         string          `json:"period"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	TotalViews     int             `json:"total_views"`
	UniqueVisitors int             `json:"unique_visitors"`
	BotViews       int             `json:"bot_views"`
	TopRecords     []RecordStat    `json:"top_records"`
	Referrers      []DimensionStat `json:"referrers"`
	Browsers       []DimensionStat `json:"browsers"`
	Devices        []DimensionStat `json:"devices"`
	Bots           []DimensionStat `json:"bots"`
	Daily          []DailyViews    `json:"daily"`
}

type RecordStat struct {
	Kind  content.Kind `json:"kind"`
	Slug  string       `json:"slug"`
	Views int          `json:"views"`
}

type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type DailyViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// Hasher derives anonymous identifiers from a per-installation salt.
type Hasher struct {
	salt string
}

// newSalt returns 32 random bytes, hex encoded.
func newSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// VisitorID hashes ip and userAgent into a 16-character identifier.
func (h Hasher) VisitorID(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(h.salt + ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}

// ParseUserAgent reports the browser family and device class of ua.
func ParseUserAgent(ua string) (browser, device string) {
	ua = strings.ToLower(ua)

	// Edge and Opera also claim Chrome, and Chrome claims Safari.
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return browser, device
}

// knownBots is checked in order; generic markers come last.
var knownBots = []struct{ marker, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"duckduckbot", "DuckDuckBot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"gptbot", "GPTBot"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
	{"bot", "Other Bot"},
}

// BotName returns the crawler name for ua, or "" for a human visitor.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range knownBots {
		if strings.Contains(ua, b.marker) {
			return b.name
		}
	}
	return ""
}

var referrerHost = regexp.MustCompile(`^https?://(?:www\.)?([^/:?#]+)`)

var searchEngines = []struct{ marker, name string }{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a source name. Links from the site
// itself count as direct.
func CleanReferrer(ref, siteHost string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "Direct"
	}
	m := referrerHost.FindStringSubmatch(strings.ToLower(ref))
	if len(m) < 2 {
		return "Other"
	}
	host := m[1]
	if siteHost != "" && strings.EqualFold(strings.TrimPrefix(siteHost, "www."), host) {
		return "Direct"
	}
	for _, s := range searchEngines {
		if strings.Contains(host, s.marker) {
			return s.name
		}
	}
	return host
}

// Period is a named reporting window.
type Period struct {
	Name string
	Days int
}

// ParsePeriod accepts today, week, month and year; anything else is week.
func ParsePeriod(s string) Period {
	switch s {
	case "today":
		return Period{"today", 1}
	case "month":
		return Period{"month", 30}
	case "year":
		return Period{"year", 365}
	}
	return Period{"week", 7}
}

// Range returns the half-open window [from, to) ending with the day holding now.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return to.AddDate(0, 0, -p.Days), to
}
