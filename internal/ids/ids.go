// Package ids generates opaque identifiers for courses, modules,
// activities and attempts.
package ids

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces a new identifier on every call.
type Generator func() string

// New returns a random UUID string. If the system random source fails it
// falls back to a time-prefixed pseudo-random token, so it never errors.
func New() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return fallback(time.Now())
}

func fallback(now time.Time) string {
	return fmt.Sprintf("%x-%x", now.UnixNano(), rand.Uint64())
}

// Sequence returns a deterministic Generator yielding prefix-1, prefix-2, ...
// Useful for tests and reproducible fixtures. Safe for concurrent use.
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
