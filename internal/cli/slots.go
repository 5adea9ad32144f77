package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"schedula/booking/internal/app"
	"schedula/booking/internal/service/slots"
	grpcTransport "schedula/booking/internal/transport/grpc"
)

func newSlotsCmd(opts *options) *cobra.Command {
	var (
		date   string
		server string
	)

	c := &cobra.Command{
		Use:   "slots",
		Short: "Print the open session starts of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server != "" {
				return slotsRemote(cmd, server, date)
			}
			return slotsLocal(cmd, opts, date)
		},
	}

	c.Flags().StringVar(&date, "date", time.Now().Format(slots.DateLayout), "day to query (YYYY-MM-DD)")
	c.Flags().StringVar(&server, "server", "", "query a running schedula-server at host:port instead of the schedule source")
	return c
}

func slotsLocal(cmd *cobra.Command, opts *options, date string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log := opts.logger()

	source, closeSource, err := app.OpenSource(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeSource() }()

	svc, err := app.NewSlotsService(cfg, source, nil)
	if err != nil {
		return err
	}

	day, open, err := svc.SlotsOn(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(open) == 0 {
		fmt.Fprintf(out, "no open slots on %s\n", day.Format(slots.DateLayout))
		return nil
	}
	for _, s := range open {
		fmt.Fprintf(out, "%02d:%02d\t%s\n", s.Hour, s.Minute, s.On(day).Format(time.RFC3339))
	}
	return nil
}

func slotsRemote(cmd *cobra.Command, server, date string) error {
	conn, err := grpc.NewClient(server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", server, err)
	}
	defer conn.Close()

	reply, err := grpcTransport.NewAvailabilityClient(conn).ListSlots(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(reply.Slots) == 0 {
		fmt.Fprintf(out, "no open slots on %s\n", reply.Date)
		return nil
	}
	for _, s := range reply.Slots {
		fmt.Fprintf(out, "%02d:%02d\t%s\n", s.Hour, s.Minute, s.Start)
	}
	return nil
}
