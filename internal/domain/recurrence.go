package domain

import (
	"errors"
	"time"
)

var (
	ErrNotRecurring         = errors.New("booking is not recurring")
	ErrHorizonNotAfterStart = errors.New("horizon must be after the booking start")
)

const RecurrenceStep = 7

// WeekKey identifies an ISO week. Exceptions of a recurring booking are
// matched against occurrences by this key only.
type WeekKey struct {
	Year int
	Week int
}

func WeekKeyOf(t time.Time) WeekKey {
	y, w := t.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

// Expand returns the weekly occurrences of b from its first start up to and
// including horizonEnd. Occurrences whose ISO week carries an exception are
// left out; the exception instants themselves are not part of the result.
func Expand(b Booking, horizonEnd time.Time) ([]time.Time, error) {
	if !b.IsRecurring {
		return nil, ErrNotRecurring
	}
	if !horizonEnd.After(b.DateTime) {
		return nil, ErrHorizonNotAfterStart
	}

	loc := b.DateTime.Location()
	skipped := make(map[WeekKey]struct{}, len(b.Exceptions))
	for _, ex := range b.Exceptions {
		skipped[WeekKeyOf(ex.In(loc))] = struct{}{}
	}

	out := make([]time.Time, 0, 8)
	for i := 0; ; i++ {
		// AddDate keeps the local wall-clock time across DST transitions.
		occ := b.DateTime.AddDate(0, 0, i*RecurrenceStep)
		if occ.After(horizonEnd) {
			break
		}
		if _, ok := skipped[WeekKeyOf(occ)]; ok {
			continue
		}
		out = append(out, occ)
	}

	return out, nil
}
