// Package availability computes the bookable session starts of a single day
// from the practitioner's bookings. Everything here is a pure function of its
// arguments and safe for concurrent use.
package availability

import (
	"errors"
	"sort"
	"time"

	"schedula/booking/internal/domain"
)

const (
	DefaultMinGap = 60 * time.Minute
	// HorizonMonths bounds recurring expansion relative to the queried day.
	HorizonMonths = 1
)

type Slot struct {
	Hour      int  `json:"hour"`
	Minute    int  `json:"minute"`
	Available bool `json:"available"`
}

// On returns the slot's start instant on day, in day's location.
func (s Slot) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, s.Hour, s.Minute, 0, 0, day.Location())
}

type Rules struct {
	Grid   domain.TimeGrid
	MinGap time.Duration
}

func DefaultRules() Rules {
	return Rules{
		Grid:   domain.DefaultTimeGrid(),
		MinGap: DefaultMinGap,
	}
}

func (r Rules) Validate() error {
	if err := r.Grid.Validate(); err != nil {
		return err
	}
	if r.MinGap < 0 {
		return errors.New("min gap must not be negative")
	}
	return nil
}

// AvailableSlots applies DefaultRules.
func AvailableSlots(day time.Time, bookings []domain.Booking) []Slot {
	return DefaultRules().AvailableSlots(day, bookings)
}

// AvailableSlots returns the open slots of day in ascending order. A slot is
// open when its session overlaps no occupied session and keeps MinGap of
// clearance to each of them. Invalid rules fall back
// to DefaultRules.
func (r Rules) AvailableSlots(day time.Time, bookings []domain.Booking) []Slot {
	if r.Validate() != nil {
		r = DefaultRules()
	}

	occupied := r.OccupiedInstants(day, bookings)
	starts := r.Grid.Starts(day)

	out := make([]Slot, 0, len(starts))
	for _, s := range starts {
		if !r.open(s, occupied) {
			continue
		}
		out = append(out, Slot{Hour: s.Hour(), Minute: s.Minute(), Available: true})
	}
	return out
}

// OccupiedInstants returns the session starts that block time on day, sorted
// and without duplicates. Instants that do not fall on day are dropped.
func (r Rules) OccupiedInstants(day time.Time, bookings []domain.Booking) []time.Time {
	y, m, d := day.Date()
	horizonEnd := time.Date(y, m, d, 0, 0, 0, 0, day.Location()).AddDate(0, HorizonMonths, 0)

	seen := make(map[int64]struct{})
	out := make([]time.Time, 0, len(bookings))
	add := func(t time.Time) {
		if t.IsZero() || !domain.SameDay(t, day) {
			return
		}
		key := t.UnixNano()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	for _, b := range bookings {
		if b.DateTime.IsZero() {
			continue
		}
		if b.IsRecurring {
			if b.DateTime.Before(horizonEnd) {
				occs, err := domain.Expand(b, horizonEnd)
				if err == nil {
					for _, o := range occs {
						add(o)
					}
				}
			}
		} else {
			add(b.DateTime)
		}
		for _, ex := range b.Exceptions {
			add(ex)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (r Rules) open(start time.Time, occupied []time.Time) bool {
	for _, o := range occupied {
		if r.overlaps(o, start) || !r.clearOf(o, start) {
			return false
		}
	}
	return true
}

// overlaps reports whether a session starting at start would intersect the
// occupied session [o, o+session). This covers a start lying inside it.
func (r Rules) overlaps(o, start time.Time) bool {
	return start.Before(o.Add(r.Grid.Session)) && o.Before(start.Add(r.Grid.Session))
}

func (r Rules) clearOf(o, start time.Time) bool {
	return start.Before(o.Add(-r.MinGap)) || !start.Before(o.Add(r.Grid.Session+r.MinGap))
}
