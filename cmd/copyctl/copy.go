package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/copyctl/copyctl/copy"
	"github.com/copyctl/copyctl/ra"
)

type copyCommand struct {
	asChild bool
	rev     string
	peg     string
}

func (c *copyCommand) Name() string { return "copy" }
func (c *copyCommand) Args() string { return "<src>... <dst>" }
func (c *copyCommand) ShortHelp() string {
	return "copy one or more paths or URLs to a destination, preserving history"
}
func (c *copyCommand) LongHelp() string {
	return "copy copies one or more sources to dst. Sources and dst may each be\n" +
		"a local working-copy path or a repository URL; all sources must share\n" +
		"the same locality."
}
func (c *copyCommand) Hidden() bool { return false }

func (c *copyCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.asChild, "parents", false, "treat dst as a containing directory rather than an exact path")
	fs.StringVar(&c.rev, "r", "", "operational revision of the source(s)")
	fs.StringVar(&c.peg, "peg", "", "peg revision the source path(s) are interpreted in")
}

func (c *copyCommand) Run(ctl *Ctx, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("copy requires at least one source and a destination")
	}
	srcArgs, dst := args[:len(args)-1], args[len(args)-1]

	rev, err := parseRevision(c.rev)
	if err != nil {
		return err
	}
	peg, err := parseRevision(c.peg)
	if err != nil {
		return err
	}

	sources := make([]copy.CopySource, len(srcArgs))
	for i, s := range srcArgs {
		sources[i] = copy.CopySource{Path: s, Revision: rev, PegRevision: peg}
	}

	if ctl.DryRun {
		ctl.Out.Logf("dry-run: would copy %v to %s\n", srcArgs, dst)
		return nil
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	col := collaborators(ctx, ctl)
	cb := callbacks(ctx, ctl)
	info, err := copy.Copy(ctx, col, cb, sources, dst, c.asChild)
	if err != nil {
		return err
	}
	if info != nil {
		ctl.Out.Logf("Committed revision %d.\n", info.Revision)
	}
	return nil
}

func parseRevision(s string) (ra.Revision, error) {
	switch s {
	case "":
		return ra.Revision{}, nil
	case "HEAD":
		return ra.Revision{Kind: ra.RevHead}, nil
	case "WORKING":
		return ra.Revision{Kind: ra.RevWorking}, nil
	case "BASE":
		return ra.Revision{Kind: ra.RevBase}, nil
	case "COMMITTED":
		return ra.Revision{Kind: ra.RevCommitted}, nil
	case "PREV":
		return ra.Revision{Kind: ra.RevPrevious}, nil
	default:
		var n int64
		if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
			return ra.Revision{}, fmt.Errorf("unrecognized revision %q", s)
		}
		return ra.Revision{Kind: ra.RevNumber, Num: n}, nil
	}
}
