package discovery

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/meralco-rates/internal/model"
)

var (
	monthKeyRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

	// "Feb 2026", "February 2026", "Sept. 2025" as found in RFC 822 pubDate strings.
	abbrevMonthRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{4})`)

	fullMonthRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})`)

	// /2024-03/ directory segment.
	pathYearMonthRe = regexp.MustCompile(`/(20\d{2})-(\d{2})/`)
	// /03-2024_summary.pdf style file name prefix.
	pathMonthYearRe = regexp.MustCompile(`/(\d{2})-(20\d{2})[_./-]`)
)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ParseMonthKey validates a YYYY-MM month key.
func ParseMonthKey(s string) (string, error) {
	m := monthKeyRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", eris.Errorf("discovery: invalid month %q, want YYYY-MM", s)
	}
	key, ok := monthKey(m[1], m[2])
	if !ok {
		return "", eris.Errorf("discovery: invalid month %q, want YYYY-MM", s)
	}
	return key, nil
}

// MonthFromPubDate extracts a month key from a feed publication date such as
// "Tue, 10 Feb 2026 08:00:00 +0800".
func MonthFromPubDate(s string) string {
	m := abbrevMonthRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return monthFromName(m[1], m[2])
}

// MonthFromTitle extracts a month key from a full month-name phrase such as
// "Summary Schedule of Rates for March 2024".
func MonthFromTitle(s string) string {
	m := fullMonthRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return monthFromName(m[1], m[2])
}

// MonthFromDocumentURL extracts a month key from a /YYYY-MM/ or /MM-YYYY path
// segment of a document URL.
func MonthFromDocumentURL(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.EscapedPath()
	}

	if m := pathYearMonthRe.FindStringSubmatch(path); m != nil {
		if key, ok := monthKey(m[1], m[2]); ok {
			return key
		}
	}
	if m := pathMonthYearRe.FindStringSubmatch(path); m != nil {
		if key, ok := monthKey(m[2], m[1]); ok {
			return key
		}
	}
	return ""
}

// SortByMonth sorts items chronologically, keeping discovery order for ties.
func SortByMonth(items []model.DiscoveryItem) {
	slices.SortStableFunc(items, func(a, b model.DiscoveryItem) int {
		return strings.Compare(a.MonthKey, b.MonthKey)
	})
}

func monthFromName(name, year string) string {
	n, ok := monthNumbers[strings.ToLower(name[:3])]
	if !ok {
		return ""
	}
	key, ok := monthKey(year, fmt.Sprintf("%02d", n))
	if !ok {
		return ""
	}
	return key
}

func monthKey(year, month string) (string, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", y, m), true
}
