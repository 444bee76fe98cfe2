// Package queue implements the durable search-job queue: a redis-backed
// publisher and a delivery relay that invokes the worker webhook with a
// signed request.
package queue

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Header names used on webhook deliveries.
const (
	SignatureHeader = "X-Queue-Signature"
	TimestampHeader = "X-Queue-Timestamp"
)

// Sign computes the hex HMAC-SHA256 signature over the raw request body.
// The timestamp header travels alongside for freshness accounting but is
// not part of the MAC, so a receiver can still verify a delivery whose
// timestamp header was lost in transit.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature with each candidate key and reports
// whether any matches. Two keys are normally in play: the current one and
// the next one during rotation. Empty keys are skipped. Comparison is
// constant-time.
func Verify(body []byte, signature string, keys ...string) bool {
	if signature == "" {
		return false
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		expected := Sign(body, key)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// ParseTimestamp reads a unix-seconds timestamp header value, falling back
// to now when the header is absent or unreadable.
func ParseTimestamp(value string, now time.Time) time.Time {
	if value == "" {
		return now
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return now
	}
	return time.Unix(secs, 0)
}
