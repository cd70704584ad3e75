package copy

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestComposeErrorsAllNilReturnsNil(t *testing.T) {
	if err := ComposeErrors(nil, nil, nil); err != nil {
		t.Fatalf("expected nil when all three phases succeed, got %v", err)
	}
}

func TestComposeErrorsCommitOnly(t *testing.T) {
	err := ComposeErrors(errors.New("boom"), nil, nil)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
	if !strings.Contains(err.Error(), "Commit failed") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected the commit failure to lead the chain, got %q", err.Error())
	}
}

func TestComposeErrorsCommitSucceededOthersFailed(t *testing.T) {
	err := ComposeErrors(nil, errors.New("lock stuck"), errors.New("tmp dir left behind"))
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Commit succeeded") {
		t.Fatalf("expected the chain to note the commit itself succeeded, got %q", msg)
	}
	if !strings.Contains(msg, "lock stuck") || !strings.Contains(msg, "tmp dir left behind") {
		t.Fatalf("expected both the unlock and cleanup failures to appear, got %q", msg)
	}
	unlockIdx := strings.Index(msg, "lock stuck")
	cleanupIdx := strings.Index(msg, "tmp dir left behind")
	if unlockIdx < 0 || cleanupIdx < 0 || unlockIdx > cleanupIdx {
		t.Fatalf("expected unlock error to precede cleanup error in the chain, got %q", msg)
	}
}

func TestComposeErrorsAllThreeFail(t *testing.T) {
	err := ComposeErrors(errors.New("commit broke"), errors.New("unlock broke"), errors.New("cleanup broke"))
	msg := err.Error()
	for _, want := range []string{"commit broke", "unlock broke", "cleanup broke"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected chain to contain %q, got %q", want, msg)
		}
	}
}
