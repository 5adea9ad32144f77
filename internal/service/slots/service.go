package slots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schedula/booking/internal/availability"
	"schedula/booking/internal/store"
)

const DateLayout = "2006-01-02"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Config struct {
	PractitionerID string
	Rules          availability.Rules
	Location       *time.Location
	Metrics        *Metrics
}

type Service struct {
	source         store.BookingSource
	practitionerID string
	rules          availability.Rules
	loc            *time.Location
	metrics        *Metrics
}

func NewService(source store.BookingSource, cfg Config) (*Service, error) {
	if source == nil {
		return nil, errors.New("booking source is required")
	}
	id := strings.TrimSpace(cfg.PractitionerID)
	if id == "" {
		return nil, errors.New("practitioner id is required")
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("availability rules: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		source:         source,
		practitionerID: id,
		rules:          cfg.Rules,
		loc:            loc,
		metrics:        cfg.Metrics,
	}, nil
}

// Day parses a calendar date as midnight in the service's location.
func (s *Service) Day(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, validationError("date is required")
	}
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, validationError("date must be formatted as YYYY-MM-DD")
	}
	return day, nil
}

// Slots returns the open session starts of day for the configured
// practitioner. day is moved into the service's location first.
func (s *Service) Slots(ctx context.Context, day time.Time) ([]availability.Slot, error) {
	if day.IsZero() {
		return nil, validationError("date is required")
	}
	day = day.In(s.loc)

	bookings, err := s.source.ListBookings(ctx, s.practitionerID)
	if err != nil {
		s.metrics.query("error")
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	open := s.rules.AvailableSlots(day, bookings)
	s.metrics.query("ok")
	s.metrics.observeOpen(len(open))
	return open, nil
}

// SlotsOn combines Day and Slots.
func (s *Service) SlotsOn(ctx context.Context, date string) (time.Time, []availability.Slot, error) {
	day, err := s.Day(date)
	if err != nil {
		return time.Time{}, nil, err
	}
	open, err := s.Slots(ctx, day)
	if err != nil {
		return time.Time{}, nil, err
	}
	return day, open, nil
}
