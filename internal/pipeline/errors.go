package pipeline

import (
	"errors"
	"fmt"
)

// Error taxonomy for the ingestion and enrichment paths.
//
// Connection and auth errors propagate to the triggering background job
// and mark it failed. Rate-limit errors drive the enrichment backoff and
// are never surfaced to callers. Not-found only applies to status and
// response items that match no stored record.
var (
	ErrConnection  = errors.New("connection failed")
	ErrAuth        = errors.New("authentication failed")
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("no matching record")
)

// RateLimitError wraps an HTTP status that signals throttling (429/403).
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: status %d", e.StatusCode)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// IsRateLimitStatus reports whether an HTTP status indicates throttling
// by an enrichment target.
func IsRateLimitStatus(code int) bool {
	return code == 429 || code == 403
}
