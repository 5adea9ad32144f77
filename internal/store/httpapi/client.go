// Package httpapi reads a practitioner's schedule from the booking service's
// JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"schedula/booking/internal/domain"
	"schedula/booking/internal/store"
)

const maxScheduleBytes = 4 << 20

type Config struct {
	BaseURL  string
	Location *time.Location
	Timeout  time.Duration
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
}

type Client struct {
	base *url.URL
	hc   *http.Client
	loc  *time.Location
	log  *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse schedule base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("schedule base url must be absolute")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		base: base,
		hc:   hc,
		loc:  loc,
		log:  log.With(slog.String("component", "store.httpapi")),
	}, nil
}

type bookingDTO struct {
	ID          json.RawMessage `json:"id"`
	ClientName  string          `json:"client_name"`
	DateTime    string          `json:"date_time"`
	IsRecurring bool            `json:"is_recurring"`
	Exceptions  []string        `json:"exceptions"`
	Status      string          `json:"status"`
}

func (c *Client) ListBookings(ctx context.Context, practitionerID string) ([]domain.Booking, error) {
	practitionerID = strings.TrimSpace(practitionerID)
	if practitionerID == "" {
		return nil, errors.New("practitioner id is required")
	}

	u := c.base.JoinPath("schedule", practitionerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, store.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", store.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScheduleBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	var dtos []bookingDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrBadPayload, err)
	}

	out := make([]domain.Booking, 0, len(dtos))
	for _, d := range dtos {
		b, ok := c.toDomain(d)
		if !ok {
			c.log.Debug("booking skipped", slog.String("reason", "invalid_date_time"), slog.String("booking_id", rawID(d.ID)))
			continue
		}
		out = append(out, b)
	}

	c.log.Debug("schedule fetched", slog.String("practitioner_id", practitionerID), slog.Int("count", len(out)))
	return out, nil
}

func (c *Client) toDomain(d bookingDTO) (domain.Booking, bool) {
	start, ok := store.ParseInstant(d.DateTime, c.loc)
	if !ok {
		return domain.Booking{}, false
	}
	return domain.Booking{
		ID:          rawID(d.ID),
		ClientName:  d.ClientName,
		DateTime:    start,
		IsRecurring: d.IsRecurring,
		Exceptions:  store.ParseExceptions(d.Exceptions, c.loc),
		Status:      store.ParseStatus(d.Status),
	}, true
}

func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
