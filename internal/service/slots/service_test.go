package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"schedula/booking/internal/availability"
	"schedula/booking/internal/domain"
	"schedula/booking/internal/store"
)

type fakeSource struct {
	listFn func(ctx context.Context, practitionerID string) ([]domain.Booking, error)
}

func (f *fakeSource) ListBookings(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
	if f.listFn == nil {
		panic("ListBookings not configured")
	}
	return f.listFn(ctx, practitionerID)
}

func newTestService(t *testing.T, src store.BookingSource, metrics *Metrics) *Service {
	t.Helper()
	svc, err := NewService(src, Config{
		PractitionerID: "1",
		Rules:          availability.DefaultRules(),
		Location:       time.UTC,
		Metrics:        metrics,
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestNewService_RejectsBadConfig(t *testing.T) {
	src := &fakeSource{}
	bad := availability.DefaultRules()
	bad.Grid.Interval = 0

	tests := []struct {
		name string
		src  store.BookingSource
		cfg  Config
	}{
		{name: "nil source", src: nil, cfg: Config{PractitionerID: "1", Rules: availability.DefaultRules()}},
		{name: "missing practitioner", src: src, cfg: Config{PractitionerID: "  ", Rules: availability.DefaultRules()}},
		{name: "invalid rules", src: src, cfg: Config{PractitionerID: "1", Rules: bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(tt.src, tt.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDay_ValidatesFormat(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	svc, err := NewService(&fakeSource{}, Config{PractitionerID: "1", Rules: availability.DefaultRules(), Location: loc})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	day, err := svc.Day(" 2025-11-03 ")
	if err != nil {
		t.Fatalf("Day error: %v", err)
	}
	if !day.Equal(time.Date(2025, 11, 3, 0, 0, 0, 0, loc)) || day.Location() != loc {
		t.Fatalf("day = %v", day)
	}

	for _, in := range []string{"", "03/11/2025", "2025-11-31"} {
		_, err := svc.Day(in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Day(%q) err = %v, want ValidationError", in, err)
		}
	}
}

func TestSlots_RunsEngineOnSourceBookings(t *testing.T) {
	var gotID string
	src := &fakeSource{
		listFn: func(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
			gotID = practitionerID
			return []domain.Booking{{
				ID:       "1",
				DateTime: time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
				Status:   domain.BookingStatusApproved,
			}}, nil
		},
	}
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)
	svc := newTestService(t, src, metrics)

	day, open, err := svc.SlotsOn(context.Background(), "2025-11-03")
	if err != nil {
		t.Fatalf("SlotsOn error: %v", err)
	}
	if gotID != "1" {
		t.Fatalf("practitioner id = %q, want %q", gotID, "1")
	}
	if day.Day() != 3 {
		t.Fatalf("day = %v", day)
	}
	if len(open) == 0 || open[0].Hour != 11 || open[0].Minute != 0 {
		t.Fatalf("first open slot = %+v, want 11:00", open)
	}
	if got := testutil.ToFloat64(metrics.queries.WithLabelValues("ok")); got != 1 {
		t.Fatalf("ok queries = %v, want 1", got)
	}
}

func TestSlots_WrapsSourceErrors(t *testing.T) {
	src := &fakeSource{
		listFn: func(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
			return nil, store.ErrUnavailable
		},
	}
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)
	svc := newTestService(t, src, metrics)

	_, err := svc.Slots(context.Background(), time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := testutil.ToFloat64(metrics.queries.WithLabelValues("error")); got != 1 {
		t.Fatalf("error queries = %v, want 1", got)
	}
}

func TestSlots_RejectsZeroDay(t *testing.T) {
	svc := newTestService(t, &fakeSource{}, nil)
	_, err := svc.Slots(context.Background(), time.Time{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
