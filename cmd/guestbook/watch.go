package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehmann314159/folio/internal/client"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the guestbook every time it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts.newClient(), newPrinter(cmd.OutOrStdout()))
		},
	}
}

func runWatch(ctx context.Context, c *client.Messages, p *printer) error {
	snapshots, errs, err := c.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case s, ok := <-snapshots:
			if !ok {
				p.Warnf("stream closed by server\n")
				return nil
			}
			p.Messages(s, time.Now())
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.Warnf("%v\n", e)
		}
	}
}
