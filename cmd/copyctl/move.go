package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/copyctl/copyctl/copy"
)

type moveCommand struct {
	asChild bool
	force   bool
}

func (c *moveCommand) Name() string { return "move" }
func (c *moveCommand) Args() string { return "<src>... <dst>" }
func (c *moveCommand) ShortHelp() string {
	return "move one or more paths or URLs to a destination, preserving history"
}
func (c *moveCommand) LongHelp() string {
	return "move moves one or more sources to dst, within a single locality\n" +
		"(working copy or repository - moving across the boundary is not\n" +
		"supported)."
}
func (c *moveCommand) Hidden() bool { return false }

func (c *moveCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.asChild, "parents", false, "treat dst as a containing directory rather than an exact path")
	fs.BoolVar(&c.force, "force", false, "bypass the local-modification check on the source")
}

func (c *moveCommand) Run(ctl *Ctx, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("move requires at least one source and a destination")
	}
	srcArgs, dst := args[:len(args)-1], args[len(args)-1]

	sources := make([]copy.CopySource, len(srcArgs))
	for i, s := range srcArgs {
		sources[i] = copy.CopySource{Path: s}
	}

	if ctl.DryRun {
		ctl.Out.Logf("dry-run: would move %v to %s\n", srcArgs, dst)
		return nil
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	col := collaborators(ctx, ctl)
	cb := callbacks(ctx, ctl)
	info, err := copy.Move(ctx, col, cb, sources, dst, c.force, c.asChild)
	if err != nil {
		return err
	}
	if info != nil {
		ctl.Out.Logf("Committed revision %d.\n", info.Revision)
	}
	return nil
}
