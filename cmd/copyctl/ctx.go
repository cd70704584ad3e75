package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sdboyer/constext"

	"github.com/copyctl/copyctl/copy"
	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/internal/colog"
	"github.com/copyctl/copyctl/internal/config"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/ra/svnra"
	"github.com/copyctl/copyctl/wc"
	"github.com/copyctl/copyctl/wc/localwc"
)

// Ctx is the shared environment every subcommand runs under. Out carries
// user-facing output, Err carries diagnostics and fatal errors, and
// Verbose - silent unless -v was given - narrates the one-line-per-pair
// detail spec.md §9's ambient logging calls for.
type Ctx struct {
	Out, Err, Verbose *colog.Logger
	DryRun            bool
	Config            config.Config
}

// signalContext returns a context canceled on SIGINT (os.Interrupt), composed
// with parent via constext so a caller-supplied deadline (none, today,
// but the composition point the library exists for) and the interrupt
// source both have standing to cancel the run.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt)
	merged, mergedCancel := constext.Cons(parent, sigCtx)
	return merged, func() {
		stop()
		mergedCancel()
	}
}

// collaborators wires the reference implementations (localwc, svnra)
// together into the copy.Collaborators bundle every handler consumes.
func collaborators(ctx context.Context, ctl *Ctx) copy.Collaborators {
	notify := func(e wc.Event) {
		ctl.Out.Logf("%s %s\n", eventVerb(e.Action), e.Path)
		ctl.Verbose.LogOpfln("%s %s", eventVerb(e.Action), e.Path)
	}
	newSession := func() ra.Session {
		return svnra.New(ctx, ctl.Config.RATimeout)
	}
	return copy.Collaborators{
		WC:                      localwc.New(notify, newSession),
		NewSession:              newSession,
		PathDriver:              editor.NewPathDriver(),
		DisallowForeignCheckout: !ctl.Config.AllowForeignCheckout,
	}
}

func eventVerb(a wc.EventAction) string {
	switch a {
	case wc.EventAdd:
		return "A"
	case wc.EventCopy:
		return "A"
	case wc.EventDelete:
		return "D"
	case wc.EventUpdate:
		return "U"
	default:
		return "?"
	}
}

// callbacks builds the Cancel/Notify/GetLogMsg bundle: cancellation is
// driven by ctx, notifications are forwarded to ctl.Out, and the log
// message is read from stdin the first (and only) time it's needed.
func callbacks(ctx context.Context, ctl *Ctx) copy.Callbacks {
	return copy.Callbacks{
		Cancel: func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		},
		Notify: func(e wc.Event) {
			ctl.Out.Logf("%s %s\n", eventVerb(e.Action), e.Path)
			ctl.Verbose.LogOpfln("%s %s", eventVerb(e.Action), e.Path)
		},
		GetLogMsg: func(items []wc.CommitItem) (string, bool) {
			ctl.Verbose.LogOpfln("reading commit log message for %d item(s)", len(items))
			fmt.Fprintln(os.Stderr, "--- log message: read from stdin, end with a single '.' line ---")
			scanner := bufio.NewScanner(os.Stdin)
			var lines []string
			for scanner.Scan() {
				line := scanner.Text()
				if line == "." {
					break
				}
				lines = append(lines, line)
			}
			if len(lines) == 0 {
				return "", false
			}
			msg := ""
			for i, l := range lines {
				if i > 0 {
					msg += "\n"
				}
				msg += l
			}
			return msg, true
		},
	}
}
