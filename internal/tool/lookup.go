package tool

import (
	"context"
	"errors"
	"net"
)

// CachedCode is a previously resolved vocabulary code, as stored by a
// LookupCache implementation.
type CachedCode struct {
	Code    string `json:"code"`
	System  string `json:"system"`
	Display string `json:"display"`
	Match   string `json:"match"`
}

// LookupCache caches successful code lookups keyed by vocabulary and
// normalized term. A nil CachedCode with nil error is a miss. Cache failures
// must degrade to a live lookup, never abort one.
// Implementations must be safe for concurrent use.
type LookupCache interface {
	GetCode(ctx context.Context, vocabulary, term string) (*CachedCode, error)
	PutCode(ctx context.Context, vocabulary, term string, code *CachedCode) error
}

// isTimeout reports whether err is a deadline or network timeout, which is
// reported distinctly from other upstream failures.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
