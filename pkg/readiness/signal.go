// Package readiness implements the cross-process readiness handshake.
//
// Producer processes (camera, scale) publish a fact by writing a small
// artifact file. The consumer side never blocks on a single artifact: a
// Source reports whether its fact is available right now, and a Waiter polls
// a set of sources under a deadline.
//
// An artifact that is absent, half-written or otherwise unparsable means "not
// ready yet". It is never surfaced as a failure; the next poll sweep simply
// tries again.
package readiness

import (
	"errors"
	"strconv"
	"time"
)

// Well-known signal names.
const (
	SignalImage  = "image"
	SignalWeight = "weight"
)

// ErrNotReady is returned by Source.TryRead while the artifact is absent or
// does not yet carry a usable value.
var ErrNotReady = errors.New("signal not ready")

// Value is a resolved readiness fact.
type Value struct {
	// Name is the signal name (e.g. "image", "weight").
	Name string

	// Path is the published file path, set by image sources.
	Path string

	// Grams is the published weight, set by weight sources.
	Grams float64

	// Timestamp is the producer timestamp, or the artifact modification time
	// when the producer does not supply one.
	Timestamp time.Time
}

// String returns the payload in the form used for logs and messages.
func (v Value) String() string {
	if v.Path != "" {
		return v.Path
	}
	return strconv.FormatFloat(v.Grams, 'f', -1, 64)
}

// Source reads one readiness artifact.
//
// TryRead must not block. It returns ErrNotReady when the fact has not been
// published; any other error describes an unexpected artifact corruption.
// Callers treat both the same way and keep waiting.
type Source interface {
	Name() string
	TryRead() (Value, error)
}
