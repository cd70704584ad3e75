// Command copyctl is a command-line client for the copy/move subsystem:
// one subcommand per top-level entry point (copy, move), following the
// same command-registry / flag.FlagSet-per-subcommand shape the teacher's
// cmd/dep uses.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/copyctl/copyctl/copy"
	"github.com/copyctl/copyctl/internal/colog"
	"github.com/copyctl/copyctl/internal/config"
)

type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Register(*flag.FlagSet)
	Hidden() bool
	Run(*Ctx, []string) error
}

func main() {
	c := &Config{
		Args:   os.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a copyctl execution.
type Config struct {
	Args           []string
	Stdout, Stderr io.Writer
}

func (c *Config) Run() (exitCode int) {
	commands := []command{
		&copyCommand{},
		&moveCommand{},
	}

	errLogger := colog.New(c.Stderr)

	usage := func() {
		errLogger.Logln("copyctl copies or moves paths, preserving history, across working copies and repositories")
		errLogger.Logln()
		errLogger.Logln("Usage: copyctl <command>")
		errLogger.Logln()
		errLogger.Logln("Commands:")
		errLogger.Logln()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		w.Flush()
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		return 1
	}

	cfg := loadConfig(errLogger)
	copy.SetTimestampSleepDuration(cfg.SleepForTimestamps)

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		dryRun := fs.Bool("dry-run", false, "report what would happen without touching anything")
		verbose := fs.Bool("v", false, "log one line per pair as it's acted on")
		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCommandHelp {
			fs.Usage()
			return 1
		}
		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}

		verboseOut := io.Discard
		if *verbose {
			verboseOut = c.Stderr
		}

		ctx := &Ctx{
			Out:     colog.New(c.Stdout),
			Err:     errLogger,
			Verbose: colog.New(verboseOut),
			DryRun:  *dryRun,
			Config:  cfg,
		}

		if err := cmd.Run(ctx, fs.Args()); err != nil {
			errLogger.Logf("%v\n", err)
			return 1
		}
		return 0
	}

	errLogger.Logf("copyctl: %s: no such command\n", cmdName)
	usage()
	return 1
}

// loadConfig reads .copyctlrc from the current directory, falling back to
// config.Default when it's absent; a malformed file is reported but does
// not abort the run.
func loadConfig(errLogger *colog.Logger) config.Config {
	f, err := os.Open(config.FileName)
	if err != nil {
		return config.Default()
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		errLogger.LogOpfln("ignoring malformed %s: %v", config.FileName, err)
		return config.Default()
	}
	return cfg
}

func resetUsage(logger *colog.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Logf("Usage: copyctl %s %s\n", name, args)
		logger.Logln()
		logger.Logln(strings.TrimSpace(longHelp))
		logger.Logln()
		if hasFlags {
			logger.Logln("Flags:")
			logger.Logln()
			logger.Logln(flagBlock.String())
		}
	}
}

func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}
