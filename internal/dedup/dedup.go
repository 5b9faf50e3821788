// Package dedup provides message deduplication via SHA256 fingerprinting.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint creates a deterministic SHA256 hash over the normalized
// (sender, body) pair. Format: SHA256("{sender}|{body}") after normalization.
// Owner scoping is applied at the storage key, not inside the hash, so the
// same message ingested by two different users reserves independently.
//
// Normalization folds the differences carriers introduce on redelivery:
// unicode compatibility forms (NFKC), letter case, and whitespace runs.
func Fingerprint(sender, body string) string {
	input := fmt.Sprintf("%s|%s", normalize(sender), normalize(body))
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}
