// Package app wires configuration into the schedule source and services
// shared by the server and the operator CLI.
package app

import (
	"fmt"
	"log/slog"

	"schedula/booking/internal/config"
	"schedula/booking/internal/service/slots"
	"schedula/booking/internal/store"
	"schedula/booking/internal/store/cache"
	"schedula/booking/internal/store/httpapi"
	"schedula/booking/internal/store/postgres"
)

// OpenSource builds the configured booking source behind the schedule
// cache. The returned close func releases any database pool.
func OpenSource(cfg config.Config, log *slog.Logger) (store.BookingSource, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Schedule.Source {
	case config.SourcePostgres:
		log.Info("connecting to database", DatabaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open database: %w", err)
		}
		repo := postgres.NewBookingRepo(db, cfg.Schedule.Location)
		return cache.New(repo, cfg.Schedule.CacheSize, cfg.Schedule.CacheTTL), func() error { return postgres.Close(db) }, nil

	case config.SourceHTTP:
		client, err := httpapi.NewClient(httpapi.Config{
			BaseURL:  cfg.Schedule.BaseURL,
			Location: cfg.Schedule.Location,
			Timeout:  cfg.Schedule.RequestTimeout,
		}, log)
		if err != nil {
			return nil, noop, err
		}
		return cache.New(client, cfg.Schedule.CacheSize, cfg.Schedule.CacheTTL), noop, nil
	}

	return nil, noop, fmt.Errorf("unsupported schedule source %q", cfg.Schedule.Source)
}

func NewSlotsService(cfg config.Config, source store.BookingSource, metrics *slots.Metrics) (*slots.Service, error) {
	return slots.NewService(source, slots.Config{
		PractitionerID: cfg.Schedule.PractitionerID,
		Rules:          cfg.Availability,
		Location:       cfg.Schedule.Location,
		Metrics:        metrics,
	})
}
