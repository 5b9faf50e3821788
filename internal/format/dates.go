package format

import (
	"regexp"
	"strings"
	"time"
)

// dateNotation pairs a token pattern with the layouts that parse it.
type dateNotation struct {
	pattern *regexp.Regexp
	layouts []string
}

// The notations cover the date styles observed across Indian bank SMS:
// day-monthabbr-year ("25-Jul-25", "26-Aug-2025"), slash-delimited numeric
// day-first ("25/07/25"), dash-delimited numeric ("25-07-2025"), compact
// ("25Jul25") and ISO ("2025-07-25").
var (
	notationDayMonYear = dateNotation{
		pattern: regexp.MustCompile(`\b(\d{1,2}-[A-Za-z]{3}-\d{2,4})\b`),
		layouts: []string{"2-Jan-2006", "2-Jan-06"},
	}
	notationSlash = dateNotation{
		pattern: regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`),
		layouts: []string{"2/1/2006", "2/1/06"},
	}
	notationDashNumeric = dateNotation{
		pattern: regexp.MustCompile(`\b(\d{1,2}-\d{1,2}-\d{2,4})\b`),
		layouts: []string{"2-1-2006", "2-1-06"},
	}
	notationCompact = dateNotation{
		pattern: regexp.MustCompile(`\b(\d{1,2}[A-Za-z]{3}\d{2,4})\b`),
		layouts: []string{"2Jan2006", "2Jan06"},
	}
	notationISO = dateNotation{
		pattern: regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		layouts: []string{"2006-01-02"},
	}
)

// extractDate tries each notation in order and parses the first token that
// yields a valid date. Month abbreviations are folded to title case before
// parsing since banks write both "JUL" and "Jul".
func extractDate(body string, notations []dateNotation) (time.Time, bool) {
	for _, n := range notations {
		m := n.pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		token := canonicalMonthCase(m[1])
		for _, layout := range n.layouts {
			if t, err := time.Parse(layout, token); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

var monthAbbrPattern = regexp.MustCompile(`[A-Za-z]{3}`)

// canonicalMonthCase rewrites a month abbreviation to the "Jan" casing that
// time.Parse requires.
func canonicalMonthCase(token string) string {
	return monthAbbrPattern.ReplaceAllStringFunc(token, func(abbr string) string {
		return strings.ToUpper(abbr[:1]) + strings.ToLower(abbr[1:])
	})
}
