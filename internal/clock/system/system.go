// Package system provides the wall-clock implementation of refs.Clock.
package system

import (
	"time"

	"github.com/refbundle/refbundle/internal/refs"
)

// Clock reads the system wall clock.
type Clock struct{}

var _ refs.Clock = Clock{}

// New returns a system clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now()
}
