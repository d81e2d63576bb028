// Package checksum computes the content digests used for change detection and
// optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a digest for use in an ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromIfMatch extracts the digest from an If-Match header value, accepting
// both quoted and weak ("W/") forms.
func FromIfMatch(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
