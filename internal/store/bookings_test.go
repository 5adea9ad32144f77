package store

import (
	"testing"
	"time"

	"schedula/booking/internal/domain"
)

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)

	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{name: "rfc3339", in: "2025-11-03T14:00:00Z", want: time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC), ok: true},
		{name: "rfc3339 offset", in: "2025-11-03T09:00:00-05:00", want: time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC), ok: true},
		{name: "naive", in: "2025-11-03T09:00:00", want: time.Date(2025, 11, 3, 9, 0, 0, 0, loc), ok: true},
		{name: "naive micros", in: "2025-11-03T09:00:00.000000", want: time.Date(2025, 11, 3, 9, 0, 0, 0, loc), ok: true},
		{name: "naive space", in: "2025-11-03 09:00:00", want: time.Date(2025, 11, 3, 9, 0, 0, 0, loc), ok: true},
		{name: "empty", in: "  "},
		{name: "garbage", in: "next tuesday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInstant(tt.in, loc)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Fatalf("ParseInstant = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseExceptions_DropsInvalidKeepsOrder(t *testing.T) {
	got := ParseExceptions([]string{"2025-11-10T10:00:00", "bogus", "2025-11-03T10:00:00"}, time.UTC)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Day() != 10 || got[1].Day() != 3 {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestParseStatus(t *testing.T) {
	if ParseStatus("Approved") != domain.BookingStatusApproved {
		t.Fatalf("Approved not recognised")
	}
	if ParseStatus("Rejected") != domain.BookingStatusPending {
		t.Fatalf("unknown status must default to Pending")
	}
}
