package main

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lehmann314159/folio/internal/client"
	"github.com/lehmann314159/folio/internal/messages"
	"github.com/lehmann314159/folio/internal/models"
)

func newPostCmd(opts *options) *cobra.Command {
	var in models.MessageInput
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "post [message]",
		Short: "Post a message and print the guestbook once it settles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Content = strings.Join(args, " ")
			return runPost(cmd.Context(), opts.newClient(), newPrinter(cmd.OutOrStdout()), in, wait)
		},
	}

	cmd.Flags().StringVar(&in.UserID, "user-id", "", "author id (required)")
	cmd.Flags().StringVar(&in.UserName, "name", "", "author display name (required)")
	cmd.Flags().StringVar(&in.UserEmail, "email", "", "author email")
	cmd.Flags().StringVar(&in.UserAvatar, "avatar", "", "author avatar URL")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "how long to wait for the live update")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runPost(ctx context.Context, c *client.Messages, p *printer, in models.MessageInput, wait time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := messages.NewBoard(c)
	if err := board.Fetch(ctx, c); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := board.Consume(gctx, c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	var postErr error
	g.Go(func() error {
		defer cancel()
		id, err := board.Submit(gctx, in)
		if err != nil {
			postErr = err
			return nil
		}
		p.Successf("posted %s\n", id)
		settle(gctx, board, id, wait)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if postErr != nil {
		return postErr
	}
	if msg := board.Err(); msg != "" {
		p.Warnf("%s\n", msg)
	}
	p.Messages(board.Messages(), time.Now())
	return nil
}

// settle waits until the server's copy of id is on the board or the wait
// runs out.
func settle(ctx context.Context, board *messages.Board, id string, wait time.Duration) {
	deadline := time.After(wait)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for !slices.ContainsFunc(board.Messages(), func(m models.Message) bool { return m.ID == id }) {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
	}
}
