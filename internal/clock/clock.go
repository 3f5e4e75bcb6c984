// Package clock supplies the current time in the platform's reference
// timezone. Every test window comparison and session timer computation goes
// through a Clock so that behavior is independent of the host timezone and
// controllable in tests.
package clock

import "time"

// DefaultTimezone is the reference timezone all test windows are scheduled in.
const DefaultTimezone = "Asia/Kolkata"

// Clock returns the current wall-clock time in a fixed location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// System returns a Clock backed by the OS clock, pinned to loc.
func System(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c *systemClock) Location() *time.Location { return c.loc }

type fixedClock struct {
	t time.Time
}

// Fixed returns a Clock frozen at t. Intended for tests.
func Fixed(t time.Time) Clock {
	return &fixedClock{t: t}
}

func (c *fixedClock) Now() time.Time           { return c.t }
func (c *fixedClock) Location() *time.Location { return c.t.Location() }

// LoadLocation resolves a timezone name, falling back to the platform
// default when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}
