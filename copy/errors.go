package copy

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the stable integer error surface described in spec.md §7. Callers
// that need to branch on failure mode should type-assert to *Error and
// inspect Kind() rather than matching on the error string.
type Kind int

const (
	_ Kind = iota
	// KindNodeUnknownKind: a WC source path does not exist.
	KindNodeUnknownKind
	// KindEntryExists: a WC destination already exists.
	KindEntryExists
	// KindFSAlreadyExists: a repository destination already exists.
	KindFSAlreadyExists
	// KindFSNotFound: the source is absent at the requested revision.
	KindFSNotFound
	// KindWCNotDirectory: the destination parent is not a directory.
	KindWCNotDirectory
	// KindWCObstructedUpdate: a WC entry exists at the destination whose
	// on-disk file is missing and which is not scheduled for deletion.
	KindWCObstructedUpdate
	// KindUnsupportedFeature covers mixed-locality sources, self-move,
	// cross-repo move, foreign-UUID directory copy, cross-boundary move,
	// copy into own child, and a source that lacks a URL.
	KindUnsupportedFeature
	// KindClientBadRevision: the peg revision of a URL source is a
	// WC-only kind (base/committed/previous).
	KindClientBadRevision
	// KindRAIllegalURL is used internally to detect cross-repository
	// attempts; it should not normally escape to a caller.
	KindRAIllegalURL
	// KindClientMultipleSourcesDisallowed: multiple sources given without
	// the as-child flag.
	KindClientMultipleSourcesDisallowed
	// KindEntryMissingURL: WC->repo promotion attempted but the WC entry
	// carries no URL.
	KindEntryMissingURL
)

func (k Kind) String() string {
	switch k {
	case KindNodeUnknownKind:
		return "node_unknown_kind"
	case KindEntryExists:
		return "entry_exists"
	case KindFSAlreadyExists:
		return "fs_already_exists"
	case KindFSNotFound:
		return "fs_not_found"
	case KindWCNotDirectory:
		return "wc_not_directory"
	case KindWCObstructedUpdate:
		return "wc_obstructed_update"
	case KindUnsupportedFeature:
		return "unsupported_feature"
	case KindClientBadRevision:
		return "client_bad_revision"
	case KindRAIllegalURL:
		return "ra_illegal_url"
	case KindClientMultipleSourcesDisallowed:
		return "client_multiple_sources_disallowed"
	case KindEntryMissingURL:
		return "entry_missing_url"
	default:
		return "unknown"
	}
}

// Error is the error type this package returns. It always carries a Kind
// and, where applicable, the offending path; Cause, if non-nil, is the
// lower-level collaborator error that triggered it.
type Error struct {
	kind  Kind
	path  string
	msg   string
	cause error
}

func newErr(k Kind, path, msg string) *Error {
	return &Error{kind: k, path: path, msg: msg}
}

func wrapErr(k Kind, path, msg string, cause error) *Error {
	return &Error{kind: k, path: path, msg: msg, cause: cause}
}

// Kind returns the stable error kind, for callers that need to branch on
// failure mode.
func (e *Error) Kind() Kind { return e.kind }

// Cause returns the underlying collaborator error, if any, satisfying
// github.com/pkg/errors' Causer interface.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Error() string {
	var s string
	switch {
	case e.msg != "" && e.path != "":
		s = fmt.Sprintf("%s: %s", e.msg, e.path)
	case e.msg != "":
		s = e.msg
	case e.path != "":
		s = fmt.Sprintf("%s: %s", e.kind, e.path)
	default:
		s = e.kind.String()
	}
	if e.cause != nil {
		s = fmt.Sprintf("%s: %s", s, e.cause)
	}
	return s
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.kind == k
}

// ComposeErrors implements the WC->Repo composite-error policy from
// spec.md §7: the three independent phases (commit, unlock, cleanup) are
// chained into one reported error, commit leading if it failed.
func ComposeErrors(commitErr, unlockErr, cleanupErr error) error {
	if commitErr == nil && unlockErr == nil && cleanupErr == nil {
		return nil
	}

	var head error
	if commitErr != nil {
		head = errors.Wrap(commitErr, "Commit failed (details follow):")
	} else {
		head = errors.New("Commit succeeded, but other errors follow:")
	}

	chain := head.Error()
	if unlockErr != nil {
		chain += "\n" + errors.Wrap(unlockErr, "Error unlocking locked dirs (details follow):").Error()
	}
	if cleanupErr != nil {
		chain += "\n" + errors.Wrap(cleanupErr, "Error in post-commit clean-up (details follow):").Error()
	}
	return errors.New(chain)
}
