package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"schedula/booking/internal/availability"
	"schedula/booking/internal/service/slots"
	"schedula/booking/internal/store"
)

type AvailabilityServer struct {
	svc slotsService
	log *slog.Logger
}

type slotsService interface {
	SlotsOn(ctx context.Context, date string) (time.Time, []availability.Slot, error)
}

func NewAvailabilityServer(svc slotsService, log *slog.Logger) *AvailabilityServer {
	if log == nil {
		log = slog.Default()
	}
	return &AvailabilityServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.availability")),
	}
}

func (s *AvailabilityServer) ListSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	dateField, ok := req.GetFields()["date"]
	if !ok {
		log.Warn("invalid request", slog.String("reason", "missing_date"))
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	if _, isString := dateField.GetKind().(*structpb.Value_StringValue); !isString {
		log.Warn("invalid request", slog.String("reason", "date_not_string"))
		return nil, status.Error(codes.InvalidArgument, "date must be a string")
	}
	date := dateField.GetStringValue()

	day, open, err := s.svc.SlotsOn(ctx, date)
	if err != nil {
		var vErr *slots.ValidationError
		switch {
		case errors.As(err, &vErr):
			log.Warn("invalid request", slog.Any("err", err), slog.String("date", date))
			return nil, status.Error(codes.InvalidArgument, vErr.Error())
		case errors.Is(err, store.ErrNotFound):
			log.Info("schedule not found", slog.String("date", date))
			return nil, status.Error(codes.NotFound, "schedule not found")
		case errors.Is(err, context.DeadlineExceeded):
			log.Warn("slots lookup timed out", slog.String("date", date))
			return nil, status.Error(codes.DeadlineExceeded, "schedule lookup timed out")
		case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrBadPayload):
			log.Warn("schedule source unavailable", slog.Any("err", err), slog.String("date", date))
			return nil, status.Error(codes.Unavailable, "schedule is temporarily unavailable. Try again.")
		}
		log.Error("slots lookup failed", slog.Any("err", err), slog.String("date", date))
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp, err := toSlotsStruct(day, open)
	if err != nil {
		log.Error("slots encode failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	log.Debug("slots listed", slog.String("date", date), slog.Int("count", len(open)))
	return resp, nil
}

func toSlotsStruct(day time.Time, open []availability.Slot) (*structpb.Struct, error) {
	list := make([]any, 0, len(open))
	for _, sl := range open {
		list = append(list, map[string]any{
			"hour":      sl.Hour,
			"minute":    sl.Minute,
			"available": sl.Available,
			"start":     sl.On(day).Format(time.RFC3339),
		})
	}
	return structpb.NewStruct(map[string]any{
		"date":  day.Format(slots.DateLayout),
		"slots": list,
	})
}
