package app

import (
	"log/slog"

	"schedula/booking/internal/config"
	"schedula/booking/internal/reportjob"
)

func NewReportClient(cfg config.Config, log *slog.Logger, metrics *reportjob.Metrics, onTransition func(reportjob.Snapshot)) (*reportjob.Client, error) {
	return reportjob.NewClient(reportjob.Config{
		BaseURL:         cfg.Report.BaseURL,
		PollInterval:    cfg.Report.PollInterval,
		PollMultiplier:  cfg.Report.PollMultiplier,
		PollMaxInterval: cfg.Report.PollMaxInterval,
		RequestTimeout:  cfg.Report.RequestTimeout,
		MaxPollDuration: cfg.Report.MaxPollDuration,
		Metrics:         metrics,
		OnTransition:    onTransition,
	}, log)
}
