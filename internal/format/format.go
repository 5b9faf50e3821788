// Package format classifies bank SMS messages and owns one extractor bundle
// per known bank signature.
package format

import (
	"regexp"
	"time"

	"github.com/rumor-ml/commons.systems/smsparse/internal/extract"
)

// BankFormat is the closed set of known bank signatures plus the generic
// fallback. Formats are alternatives, not specializations: each owns its own
// extraction ruleset, and adding a bank means adding a value here plus its
// bundle in BundleFor.
type BankFormat string

const (
	FormatHDFC    BankFormat = "hdfc"
	FormatICICI   BankFormat = "icici"
	FormatSBI     BankFormat = "sbi"
	FormatAxis    BankFormat = "axis"
	FormatGeneric BankFormat = "generic"
)

// Formats lists every format in detection priority order.
func Formats() []BankFormat {
	return []BankFormat{FormatHDFC, FormatICICI, FormatSBI, FormatAxis, FormatGeneric}
}

// signature holds the discriminating pattern for one bank format.
type signature struct {
	format  BankFormat
	pattern *regexp.Regexp
}

// signatures are tried in order. Specific signatures come before the generic
// catch-all so broad generic patterns cannot shadow them; Generic has no
// pattern and is the total fallback.
var signatures = []signature{
	{FormatHDFC, regexp.MustCompile(`(?i)\bHDFC(?:\s*Bank)?\b`)},
	{FormatICICI, regexp.MustCompile(`(?i)\bICICI(?:\s*Bank)?\b`)},
	{FormatSBI, regexp.MustCompile(`(?i)\bSBI\b|\bState\s+Bank(?:\s+of\s+India)?\b`)},
	{FormatAxis, regexp.MustCompile(`(?i)\bAxis(?:\s*Bank)?\b`)},
}

// Detect classifies a message body against the known bank signatures.
// It is total: bodies matching no signature classify as Generic.
func Detect(body string) BankFormat {
	for _, s := range signatures {
		if s.pattern.MatchString(body) {
			return s.format
		}
	}
	return FormatGeneric
}

// Bundle is the extraction ruleset for one bank format.
type Bundle interface {
	// Format returns the bank format this bundle serves.
	Format() BankFormat

	// Extract pulls the typed fields this format recognizes from the body.
	// Absent fields are reported as absent inside extract.Fields, never as
	// an error.
	Extract(body string) extract.Fields

	// ExtractDate finds the transaction date in this bank's characteristic
	// notations. Returns false when no date token is present; it must never
	// substitute the processing time for a missing date.
	ExtractDate(body string) (time.Time, bool)
}

// BundleFor returns the extractor bundle for a format. The switch is
// exhaustive over BankFormat; unknown values fall back to the generic bundle
// so detection stays total.
func BundleFor(f BankFormat) Bundle {
	switch f {
	case FormatHDFC:
		return hdfcBundleInstance
	case FormatICICI:
		return iciciBundleInstance
	case FormatSBI:
		return sbiBundleInstance
	case FormatAxis:
		return axisBundleInstance
	case FormatGeneric:
		return genericBundleInstance
	default:
		return genericBundleInstance
	}
}
