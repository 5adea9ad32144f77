package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"schedula/booking/internal/app"
	"schedula/booking/internal/config"
	"schedula/booking/internal/reportjob"
)

func newReportCmd(opts *options) *cobra.Command {
	var (
		month       string
		timeout     time.Duration
		metricsFile string
	)

	c := &cobra.Command{
		Use:   "report",
		Short: "Request a monthly booking report and wait for the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics := reportjob.MustNewMetrics(reg)

			runErr := runReport(cmd, opts, cfg, metrics, month, timeout)
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
					return errors.Join(runErr, fmt.Errorf("write metrics: %w", err))
				}
			}
			return runErr
		},
	}

	c.Flags().StringVar(&month, "month", time.Now().Format("2006-01"), "report month (YYYY-MM)")
	c.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 waits for the poll limit)")
	c.Flags().StringVar(&metricsFile, "metrics-file", "", "write report job metrics in Prometheus text format (node exporter textfile collector)")
	return c
}

func runReport(cmd *cobra.Command, opts *options, cfg config.Config, metrics *reportjob.Metrics, month string, timeout time.Duration) error {
	log := opts.logger()
	errOut := cmd.ErrOrStderr()

	client, err := app.NewReportClient(cfg, log, metrics, func(s reportjob.Snapshot) {
		fmt.Fprintf(errOut, "report: %s\n", s.Status)
	})
	if err != nil {
		return err
	}
	defer client.Stop()

	ctx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if _, err := client.Submit(ctx, month); err != nil {
		return err
	}
	snap, err := client.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for report (last status %s): %w", snap.Status, err)
	}

	switch snap.Status {
	case reportjob.StatusDone:
		return writeResult(cmd, snap.Result)
	case reportjob.StatusError:
		return snap.Err
	}
	return errors.New("report stopped before finishing")
}

func writeResult(cmd *cobra.Command, result json.RawMessage) error {
	out := cmd.OutOrStdout()
	if len(result) == 0 {
		fmt.Fprintln(out, "{}")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		_, err = fmt.Fprintln(out, string(result))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
