package availability

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"schedula/booking/internal/domain"
)

func at(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

func TestAvailableSlots_EmptyBookingsReturnsFullGrid(t *testing.T) {
	days := []time.Time{
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC),
	}

	for _, day := range days {
		slots := AvailableSlots(day, nil)
		if len(slots) != 33 {
			t.Fatalf("len(slots) = %d, want 33 (day=%v)", len(slots), day)
		}
		prev := slots[0].On(day)
		if prev.Hour() != 9 || prev.Minute() != 0 {
			t.Fatalf("first slot = %02d:%02d, want 09:00", prev.Hour(), prev.Minute())
		}
		for _, s := range slots[1:] {
			if !s.Available {
				t.Fatalf("returned slot %+v not marked available", s)
			}
			cur := s.On(day)
			if cur.Sub(prev) != domain.DefaultInterval {
				t.Fatalf("gap between %v and %v", prev, cur)
			}
			prev = cur
		}
	}
}

func TestAvailableSlots_SingleMorningBooking(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bookings := []domain.Booking{
		{ID: "1", DateTime: at(day, 9, 0), Status: domain.BookingStatusApproved},
	}

	slots := AvailableSlots(day, bookings)
	if len(slots) == 0 {
		t.Fatalf("expected slots")
	}
	if slots[0].Hour != 11 || slots[0].Minute != 0 {
		t.Fatalf("first slot = %02d:%02d, want 11:00", slots[0].Hour, slots[0].Minute)
	}
}

func TestAvailableSlots_BufferInvariant(t *testing.T) {
	day := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	bookings := []domain.Booking{
		{ID: "1", DateTime: at(day, 10, 30), Status: domain.BookingStatusPending},
		{ID: "2", DateTime: at(day, 14, 15), Status: domain.BookingStatusApproved},
		{ID: "3", DateTime: at(day, 17, 45), Status: domain.BookingStatusApproved},
	}

	slots := AvailableSlots(day, bookings)
	if len(slots) == 0 {
		t.Fatalf("expected slots")
	}

	session := domain.DefaultSession
	for _, s := range slots {
		start := s.On(day)
		for _, b := range bookings {
			before := start.Before(b.DateTime.Add(-DefaultMinGap))
			after := !start.Before(b.DateTime.Add(session + DefaultMinGap))
			if !before && !after {
				t.Fatalf("slot %v violates buffer around booking at %v", start, b.DateTime)
			}
		}
	}

	// 09:00 is more than an hour ahead of 10:30; 09:30 is exactly one hour ahead.
	if slots[0].Hour != 9 || slots[0].Minute != 0 {
		t.Fatalf("first slot = %02d:%02d, want 09:00", slots[0].Hour, slots[0].Minute)
	}
	for _, s := range slots {
		if s.Hour == 9 && s.Minute == 30 {
			t.Fatalf("09:30 must be blocked by the 10:30 booking")
		}
	}
}

func TestAvailableSlots_StatusDoesNotMatter(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	pending := AvailableSlots(day, []domain.Booking{{ID: "1", DateTime: at(day, 13, 0), Status: domain.BookingStatusPending}})
	approved := AvailableSlots(day, []domain.Booking{{ID: "1", DateTime: at(day, 13, 0), Status: domain.BookingStatusApproved}})

	if !reflect.DeepEqual(pending, approved) {
		t.Fatalf("pending and approved bookings produced different slots")
	}
}

func TestAvailableSlots_IsPure(t *testing.T) {
	day := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	exceptions := []time.Time{at(day, 16, 0)}
	bookings := []domain.Booking{
		{ID: "1", DateTime: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), IsRecurring: true},
		{ID: "2", DateTime: at(day, 13, 0), Exceptions: exceptions},
	}

	first := AvailableSlots(day, bookings)
	second := AvailableSlots(day, bookings)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated calls differ:\n%v\n%v", first, second)
	}
	if len(bookings[1].Exceptions) != 1 || !bookings[1].Exceptions[0].Equal(at(day, 16, 0)) {
		t.Fatalf("bookings were mutated")
	}

	var wg sync.WaitGroup
	results := make([][]Slot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = AvailableSlots(day, bookings)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if !reflect.DeepEqual(r, first) {
			t.Fatalf("concurrent call %d differs", i)
		}
	}
}

func TestAvailableSlots_RecurringWithExceptionWeek(t *testing.T) {
	first := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		ID:          "weekly",
		DateTime:    first,
		IsRecurring: true,
		// Third occurrence (2026-01-19) moved to Wednesday 15:00.
		Exceptions: []time.Time{time.Date(2026, 1, 21, 15, 0, 0, 0, time.UTC)},
	}

	hasTen := func(slots []Slot) bool {
		for _, s := range slots {
			if s.Hour == 10 && s.Minute == 0 {
				return true
			}
		}
		return false
	}

	for week, occupied := range map[int]bool{0: true, 1: true, 2: false, 3: true} {
		day := first.AddDate(0, 0, 7*week)
		slots := AvailableSlots(day, []domain.Booking{booking})
		if hasTen(slots) == occupied {
			t.Fatalf("week %d: 10:00 available = %v, want %v", week+1, hasTen(slots), !occupied)
		}
	}

	moved := time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)
	for _, s := range AvailableSlots(moved, []domain.Booking{booking}) {
		if s.Hour == 15 && s.Minute == 0 {
			t.Fatalf("moved occurrence at 15:00 must occupy its slot")
		}
	}
}

func TestAvailableSlots_RecurringBeyondHorizonIgnored(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		ID:          "future",
		DateTime:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		IsRecurring: true,
	}

	if got := AvailableSlots(day, []domain.Booking{booking}); len(got) != 33 {
		t.Fatalf("len(slots) = %d, want 33", len(got))
	}
}

func TestAvailableSlots_OneOffExceptionsOccupy(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		ID:         "1",
		DateTime:   time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		Exceptions: []time.Time{at(day, 12, 0)},
	}

	for _, s := range AvailableSlots(day, []domain.Booking{booking}) {
		start := s.On(day)
		if !start.Before(at(day, 11, 0)) && start.Before(at(day, 14, 0)) {
			t.Fatalf("slot %v should be blocked by the extra 12:00 instant", start)
		}
	}
}

func TestAvailableSlots_MalformedInputDegrades(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bookings := []domain.Booking{
		{ID: "zero"},
		{ID: "zero-recurring", IsRecurring: true},
		{ID: "other-day", DateTime: time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)},
		{ID: "zero-exception", DateTime: time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC), Exceptions: []time.Time{{}}},
	}

	if got := AvailableSlots(day, bookings); len(got) != 33 {
		t.Fatalf("len(slots) = %d, want 33", len(got))
	}
}

func TestAvailableSlots_TimezoneOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)
	// 09:00 UTC is 11:00 at UTC+2.
	bookings := []domain.Booking{{ID: "1", DateTime: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}}

	for _, s := range AvailableSlots(day, bookings) {
		if s.Hour >= 10 && s.Hour < 13 {
			t.Fatalf("slot %02d:%02d should be blocked", s.Hour, s.Minute)
		}
	}
}

func TestRules_InvalidFallsBackToDefaults(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	r := Rules{MinGap: -time.Minute}

	if got := r.AvailableSlots(day, nil); len(got) != 33 {
		t.Fatalf("len(slots) = %d, want 33", len(got))
	}
}

func TestRules_CustomWindow(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	r := Rules{
		Grid: domain.TimeGrid{
			Window:   domain.WorkingWindow{StartHour: 8, EndHour: 12},
			Interval: 30 * time.Minute,
			Session:  45 * time.Minute,
		},
		MinGap: 0,
	}

	slots := r.AvailableSlots(day, []domain.Booking{{ID: "1", DateTime: at(day, 9, 0)}})
	var got []string
	for _, s := range slots {
		got = append(got, s.On(day).Format("15:04"))
	}
	want := []string{"08:00", "10:00", "10:30", "11:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
}

func TestOccupiedInstants_SortedAndDeduplicated(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bookings := []domain.Booking{
		{ID: "1", DateTime: at(day, 15, 0)},
		{ID: "2", DateTime: at(day, 9, 0), Exceptions: []time.Time{at(day, 15, 0)}},
	}

	got := DefaultRules().OccupiedInstants(day, bookings)
	if len(got) != 2 {
		t.Fatalf("len(occupied) = %d, want 2", len(got))
	}
	if !got[0].Equal(at(day, 9, 0)) || !got[1].Equal(at(day, 15, 0)) {
		t.Fatalf("occupied = %v", got)
	}
}
