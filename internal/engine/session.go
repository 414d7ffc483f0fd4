package engine

import (
	"fmt"
	"time"
)

// DefaultTimeZone is the exchange time zone sessions are evaluated in.
const DefaultTimeZone = "Asia/Shanghai"

// Clock abstracts wall time so the loop can be driven deterministically.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// window is an inclusive [start, end] range in seconds since midnight.
type window struct {
	start, end int
}

func hm(h, m int) int { return h*3600 + m*60 }

// Session is the exchange trading calendar for one day.
// Morning 09:30-11:30 and afternoon 13:00-15:01, both inclusive.
type Session struct {
	loc     *time.Location
	windows []window
	open    int
	close   int
}

// NewSession creates the standard session evaluated in loc.
func NewSession(loc *time.Location) Session {
	if loc == nil {
		loc = time.UTC
	}
	return Session{
		loc: loc,
		windows: []window{
			{start: hm(9, 30), end: hm(11, 30)},
			{start: hm(13, 0), end: hm(15, 1)},
		},
		open:  hm(9, 30),
		close: hm(15, 1),
	}
}

// LoadSession resolves an IANA zone name and builds the standard session.
func LoadSession(zone string) (Session, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}
	return NewSession(loc), nil
}

// Location returns the session time zone.
func (s Session) Location() *time.Location { return s.loc }

func (s Session) secondOfDay(t time.Time) int {
	lt := t.In(s.loc)
	return lt.Hour()*3600 + lt.Minute()*60 + lt.Second()
}

// InSession reports whether t falls inside a trading window.
func (s Session) InSession(t time.Time) bool {
	sec := s.secondOfDay(t)
	for _, w := range s.windows {
		if sec >= w.start && sec <= w.end {
			return true
		}
	}
	return false
}

// Opened reports whether the market has opened for the day at t.
func (s Session) Opened(t time.Time) bool {
	return s.secondOfDay(t) >= s.open
}

// PastClose reports whether the last window of the day has ended.
func (s Session) PastClose(t time.Time) bool {
	return s.secondOfDay(t) > s.close
}
