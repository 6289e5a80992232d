package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/lehmann314159/folio/internal/messages"
	"github.com/lehmann314159/folio/internal/models"
)

type printer struct {
	out io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{out: w}
}

func (p *printer) Successf(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.out, format, args...)
}

func (p *printer) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.out, format, args...)
}

// Messages prints a snapshot newest first. Unconfirmed entries are marked.
func (p *printer) Messages(msgs []models.Message, now time.Time) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	fmt.Fprintf(p.out, "%d message(s)\n", len(msgs))
	for _, m := range msgs {
		bold.Fprint(p.out, m.UserName)
		faint.Fprintf(p.out, "  %s", messages.FormatAge(m.CreatedAt, now))
		if messages.IsPlaceholder(m.ID) {
			color.New(color.FgYellow).Fprint(p.out, "  (sending)")
		}
		fmt.Fprintf(p.out, "\n  %s\n", m.Content)
	}
}
