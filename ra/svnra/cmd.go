package svnra

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/Masterminds/vcs"
)

// monitoredCmd wraps an svn invocation and keeps monitoring the process
// until it finishes, the context is canceled, or the command has shown no
// activity for timeout - adapted from the teacher's gps.monitoredCmd,
// generalized from VCS checkout/update commands to arbitrary svn
// subcommands.
type monitoredCmd struct {
	cmd     *exec.Cmd
	timeout time.Duration
	ctx     context.Context
	stdout  *activityBuffer
	stderr  *activityBuffer
}

func newMonitoredCmd(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) *monitoredCmd {
	stdout, stderr := newActivityBuffer(), newActivityBuffer()
	cmd.Stdout, cmd.Stderr = stdout, stderr
	return &monitoredCmd{cmd: cmd, timeout: timeout, ctx: ctx, stdout: stdout, stderr: stderr}
}

func (c *monitoredCmd) run() error {
	ticker := time.NewTicker(c.timeout)
	done := make(chan error, 1)
	defer ticker.Stop()
	go func() { done <- c.cmd.Run() }()

	for {
		select {
		case <-ticker.C:
			if c.hasTimedOut() {
				if err := c.cmd.Process.Kill(); err != nil {
					return &killCmdError{err}
				}
				return &timeoutError{c.timeout}
			}
		case <-c.ctx.Done():
			if err := c.cmd.Process.Kill(); err != nil {
				return &killCmdError{err}
			}
			return c.ctx.Err()
		case err := <-done:
			return err
		}
	}
}

func (c *monitoredCmd) hasTimedOut() bool {
	t := time.Now().Add(-c.timeout)
	return c.stderr.lastActivity().Before(t) && c.stdout.lastActivity().Before(t)
}

func (c *monitoredCmd) combinedOutput() ([]byte, error) {
	if err := c.run(); err != nil {
		return c.stderr.buf.Bytes(), err
	}
	return c.stdout.buf.Bytes(), nil
}

type activityBuffer struct {
	sync.Mutex
	buf               *bytes.Buffer
	lastActivityStamp time.Time
}

func newActivityBuffer() *activityBuffer {
	return &activityBuffer{buf: bytes.NewBuffer(nil)}
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()
	b.lastActivityStamp = time.Now()
	return b.buf.Write(p)
}

func (b *activityBuffer) lastActivity() time.Time {
	b.Lock()
	defer b.Unlock()
	return b.lastActivityStamp
}

type timeoutError struct{ timeout time.Duration }

func (e timeoutError) Error() string {
	return fmt.Sprintf("svn command killed after %s of no activity", e.timeout)
}

type killCmdError struct{ err error }

func (e killCmdError) Error() string {
	return fmt.Sprintf("error killing svn command: %s", e.err)
}

// runSVN shells out to the svn client. Every failure, local (bad
// arguments, missing binary) or raised by the remote repository, is
// reported as a vcs.RemoteError carrying the command's output.
func runSVN(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	c := newMonitoredCmd(ctx, exec.Command("svn", args...), timeout)
	out, err := c.combinedOutput()
	if err != nil {
		return out, vcs.NewRemoteError(fmt.Sprintf("svn %v failed", args), err, string(out))
	}
	return out, nil
}

// runSVNMucc drives svnmucc, the svn toolchain's multiple-URL command
// client: the one svn-ecosystem binary able to batch add/delete/propset
// operations across several paths into a single atomic commit, which is
// exactly the guarantee spec.md §4.5/§4.6 require of a repo-side commit.
func runSVNMucc(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	c := newMonitoredCmd(ctx, exec.Command("svnmucc", args...), timeout)
	out, err := c.combinedOutput()
	if err != nil {
		return out, vcs.NewRemoteError(fmt.Sprintf("svnmucc %v failed", args), err, string(out))
	}
	return out, nil
}
