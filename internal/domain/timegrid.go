package domain

import (
	"errors"
	"time"
)

const (
	DefaultStartHour = 9
	DefaultEndHour   = 18
	DefaultInterval  = 15 * time.Minute
	DefaultSession   = 60 * time.Minute
)

type WorkingWindow struct {
	StartHour int
	EndHour   int
}

// TimeGrid enumerates candidate session starts for a working day. A start is
// only part of the grid when the whole session fits before the window closes.
type TimeGrid struct {
	Window   WorkingWindow
	Interval time.Duration
	Session  time.Duration
}

func DefaultTimeGrid() TimeGrid {
	return TimeGrid{
		Window:   WorkingWindow{StartHour: DefaultStartHour, EndHour: DefaultEndHour},
		Interval: DefaultInterval,
		Session:  DefaultSession,
	}
}

func (g TimeGrid) Validate() error {
	if g.Window.StartHour < 0 || g.Window.StartHour > 23 {
		return errors.New("invalid start hour")
	}
	if g.Window.EndHour <= g.Window.StartHour || g.Window.EndHour > 24 {
		return errors.New("end hour must be after start hour")
	}
	if g.Interval <= 0 {
		return errors.New("invalid interval")
	}
	if g.Session <= 0 {
		return errors.New("invalid session duration")
	}
	return nil
}

// Bounds returns the opening and closing instants of the window on day,
// evaluated in day's location.
func (g TimeGrid) Bounds(day time.Time) (time.Time, time.Time) {
	loc := day.Location()
	y, m, d := day.Date()
	open := time.Date(y, m, d, g.Window.StartHour, 0, 0, 0, loc)
	closing := time.Date(y, m, d, g.Window.EndHour, 0, 0, 0, loc)
	return open, closing
}

func (g TimeGrid) Starts(day time.Time) []time.Time {
	if g.Validate() != nil {
		return nil
	}
	open, closing := g.Bounds(day)

	out := make([]time.Time, 0, int(closing.Sub(open)/g.Interval)+1)
	for t := open; !t.Add(g.Session).After(closing); t = t.Add(g.Interval) {
		out = append(out, t)
	}
	return out
}

// SameDay reports whether t falls on day's calendar date in day's location.
func SameDay(t, day time.Time) bool {
	ty, tm, td := t.In(day.Location()).Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}
