// Package cache keeps recently fetched schedules in memory so that repeated
// availability lookups do not hit the booking service every time.
package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"schedula/booking/internal/domain"
	"schedula/booking/internal/store"
)

const (
	defaultSize = 64
	defaultTTL  = 30 * time.Second
)

type Source struct {
	next store.BookingSource
	lru  *expirable.LRU[string, []domain.Booking]
}

// New wraps next. Zero size or ttl fall back to package defaults.
func New(next store.BookingSource, size int, ttl time.Duration) *Source {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Source{
		next: next,
		lru:  expirable.NewLRU[string, []domain.Booking](size, nil, ttl),
	}
}

func (s *Source) ListBookings(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
	if cached, ok := s.lru.Get(practitionerID); ok {
		return cloneBookings(cached), nil
	}

	bookings, err := s.next.ListBookings(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	s.lru.Add(practitionerID, cloneBookings(bookings))
	return bookings, nil
}

func cloneBookings(in []domain.Booking) []domain.Booking {
	if in == nil {
		return nil
	}
	out := make([]domain.Booking, len(in))
	for i, b := range in {
		b.Exceptions = slices.Clone(b.Exceptions)
		out[i] = b
	}
	return out
}
