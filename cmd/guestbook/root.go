package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lehmann314159/folio/internal/client"
)

type options struct {
	server  string
	noColor bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "guestbook",
		Short: "Post to and follow the folio guestbook",
		Long: `guestbook talks to a running folio server.

Example usage:
  guestbook post --user-id u1 --name Ann "hello there"
  guestbook watch`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	defaultServer := os.Getenv("FOLIO_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "folio server base URL (env FOLIO_URL)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newPostCmd(opts), newWatchCmd(opts))
	return root
}

// newClient uses no overall timeout so that event streams stay open.
func (o *options) newClient() *client.Messages {
	return client.NewMessages(o.server, &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 10 * time.Second,
		},
	})
}
