// Package integrity computes and parses the content digests used by
// registry source descriptors.
//
// A descriptor's integrity string is the algorithm prefix followed by the
// lowercase hex SHA-256 of the artifact:
//
//	sha256-9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
//
// Only SHA-256 is recognized. Any other prefix is reported by Parse as
// unrecognized rather than as an error.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix is the algorithm prefix of a recognized integrity string.
const Prefix = "sha256-"

// HexLen is the length of a hex encoded SHA-256 digest.
const HexLen = sha256.Size * 2

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse splits an integrity string into its hex digest.
// ok is false when s does not carry the sha256- prefix. The digest is
// returned verbatim so comparisons stay exact and case-sensitive.
func Parse(s string) (digest string, ok bool) {
	if !strings.HasPrefix(s, Prefix) {
		return "", false
	}
	return strings.TrimPrefix(s, Prefix), true
}

// Format builds an integrity string from a hex digest.
func Format(digest string) string {
	return Prefix + digest
}

// Of returns the integrity string for data.
func Of(data []byte) string {
	return Format(Digest(data))
}

// WellFormed reports whether s is Prefix followed by exactly HexLen
// lowercase hex characters.
func WellFormed(s string) bool {
	d, ok := Parse(s)
	if !ok || len(d) != HexLen {
		return false
	}
	for i := 0; i < len(d); i++ {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
