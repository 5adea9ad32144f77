package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "Pending"
	BookingStatusApproved BookingStatus = "Approved"
)

// Booking is a practitioner's appointment as reported by the booking service.
// Exceptions keep insertion order; a recurring booking uses them to move or
// cancel a single week, a one-off booking to hold extra instants.
type Booking struct {
	ID          string
	ClientName  string
	DateTime    time.Time
	IsRecurring bool
	Exceptions  []time.Time
	Status      BookingStatus
}
