package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/smsparse/internal/extract"
)

// The bundles are stateless: each operates solely on the body it is given,
// so the shared instances are safe for concurrent use without locking.
var (
	hdfcBundleInstance    = &hdfcBundle{}
	iciciBundleInstance   = &iciciBundle{}
	sbiBundleInstance     = &sbiBundle{}
	axisBundleInstance    = &axisBundle{}
	genericBundleInstance = &genericBundle{}
)

// hdfcBundle handles HDFC Bank notifications. HDFC appends a UPI reference
// line ("Info: UPI/<merchant>/...") that carries the merchant when the usual
// anchor phrases are absent.
type hdfcBundle struct{}

var hdfcUPIInfo = regexp.MustCompile(`(?i)\binfo:\s*UPI/([^/\n]+)`)

func (b *hdfcBundle) Format() BankFormat { return FormatHDFC }

func (b *hdfcBundle) Extract(body string) extract.Fields {
	fields := extract.All(body)
	if fields.Merchant == "" {
		if m := hdfcUPIInfo.FindStringSubmatch(body); m != nil {
			fields.Merchant = strings.TrimSpace(m[1])
		}
	}
	return fields
}

func (b *hdfcBundle) ExtractDate(body string) (time.Time, bool) {
	return extractDate(body, []dateNotation{notationDayMonYear, notationSlash, notationISO})
}

// iciciBundle handles ICICI Bank notifications.
type iciciBundle struct{}

func (b *iciciBundle) Format() BankFormat { return FormatICICI }

func (b *iciciBundle) Extract(body string) extract.Fields {
	return extract.All(body)
}

func (b *iciciBundle) ExtractDate(body string) (time.Time, bool) {
	return extractDate(body, []dateNotation{notationDayMonYear, notationDashNumeric, notationSlash})
}

// sbiBundle handles State Bank of India notifications. SBI abbreviates
// withdrawals as "w/d", which the shared direction verbs do not cover.
type sbiBundle struct{}

var sbiWithdrawal = regexp.MustCompile(`(?i)\bw/d\b`)

func (b *sbiBundle) Format() BankFormat { return FormatSBI }

func (b *sbiBundle) Extract(body string) extract.Fields {
	if sbiWithdrawal.MatchString(body) {
		body = sbiWithdrawal.ReplaceAllString(body, "withdrawn")
	}
	return extract.All(body)
}

func (b *sbiBundle) ExtractDate(body string) (time.Time, bool) {
	return extractDate(body, []dateNotation{notationCompact, notationDayMonYear, notationSlash})
}

// axisBundle handles Axis Bank notifications.
type axisBundle struct{}

func (b *axisBundle) Format() BankFormat { return FormatAxis }

func (b *axisBundle) Extract(body string) extract.Fields {
	return extract.All(body)
}

func (b *axisBundle) ExtractDate(body string) (time.Time, bool) {
	return extractDate(body, []dateNotation{notationDashNumeric, notationDayMonYear, notationSlash})
}

// genericBundle is the fallback ruleset applied when no bank signature
// matches. It recognizes every date notation and the shared field patterns.
type genericBundle struct{}

func (b *genericBundle) Format() BankFormat { return FormatGeneric }

func (b *genericBundle) Extract(body string) extract.Fields {
	return extract.All(body)
}

func (b *genericBundle) ExtractDate(body string) (time.Time, bool) {
	return extractDate(body, []dateNotation{
		notationDayMonYear, notationISO, notationDashNumeric, notationSlash, notationCompact,
	})
}
