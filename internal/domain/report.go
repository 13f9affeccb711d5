package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
)

var clock = clockwork.NewRealClock()

// SetClock replaces the clock behind Now and NewRunID. A nil clock restores
// wall time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// Now returns the current UTC time from the package clock.
func Now() time.Time {
	return clock.Now().UTC()
}

// NewRunID returns a ULID stamped with the package clock, so run IDs sort
// by generation time.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(clock.Now()), ulid.DefaultEntropy()).String()
}
