package store

import (
	"context"
	"strings"
	"time"

	"schedula/booking/internal/domain"
)

// BookingSource reads a practitioner's schedule from the booking service.
// Implementations never write.
type BookingSource interface {
	ListBookings(ctx context.Context, practitionerID string) ([]domain.Booking, error)
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseInstant accepts RFC 3339 timestamps and the naive ISO timestamps the
// booking service stores. Naive values are read as wall-clock time in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range instantLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseExceptions keeps insertion order and silently drops entries that do
// not parse.
func ParseExceptions(raw []string, loc *time.Location) []time.Time {
	if len(raw) == 0 {
		return nil
	}
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		if t, ok := ParseInstant(r, loc); ok {
			out = append(out, t)
		}
	}
	return out
}

func ParseStatus(s string) domain.BookingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved":
		return domain.BookingStatusApproved
	default:
		return domain.BookingStatusPending
	}
}
