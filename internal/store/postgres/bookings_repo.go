package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"schedula/booking/internal/domain"
	"schedula/booking/internal/store"
)

// bookingRow mirrors the booking service's table. Timestamps there are stored
// without a zone and hold the practitioner's wall-clock time.
type bookingRow struct {
	bun.BaseModel `bun:"table:booking,alias:b"`

	ID             int64      `bun:"id,pk"`
	DateTime       time.Time  `bun:"date_time,notnull"`
	IsRecurring    bool       `bun:"is_recurring"`
	Exceptions     []string   `bun:"exceptions,type:json"`
	Status         string     `bun:"status"`
	ClientID       int64      `bun:"client_id"`
	PsychologistID int64      `bun:"psychologist_id"`
	Client         *clientRow `bun:"rel:belongs-to,join:client_id=id"`
}

type clientRow struct {
	bun.BaseModel `bun:"table:client,alias:c"`

	ID   int64  `bun:"id,pk"`
	Name string `bun:"name"`
}

// BookingRepo is a read-only view of the booking service's database.
type BookingRepo struct {
	db  *bun.DB
	loc *time.Location
}

func NewBookingRepo(db *bun.DB, loc *time.Location) *BookingRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingRepo{db: db, loc: loc}
}

func (r *BookingRepo) ListBookings(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
	pid, err := strconv.ParseInt(strings.TrimSpace(practitionerID), 10, 64)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var rows []bookingRow
	err = r.db.NewSelect().
		Model(&rows).
		Relation("Client").
		Where("b.psychologist_id = ?", pid).
		OrderExpr("b.date_time ASC, b.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainBooking(row, r.loc))
	}
	return out, nil
}

func toDomainBooking(row bookingRow, loc *time.Location) domain.Booking {
	var clientName string
	if row.Client != nil {
		clientName = row.Client.Name
	}
	return domain.Booking{
		ID:          strconv.FormatInt(row.ID, 10),
		ClientName:  clientName,
		DateTime:    wallClock(row.DateTime, loc),
		IsRecurring: row.IsRecurring,
		Exceptions:  store.ParseExceptions(row.Exceptions, loc),
		Status:      store.ParseStatus(row.Status),
	}
}

// wallClock reinterprets a zone-less timestamp, which the driver hands back
// as UTC, as wall-clock time in loc.
func wallClock(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
