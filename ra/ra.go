// Package ra defines the remote-access session contract consumed by the
// repo-side copy/move handlers (C5, C6, C7). This is the narrow interface
// spec.md §6.2 calls out as an external collaborator: a live handle to a
// remote repository anchored at some URL. The real implementation
// (ra/svnra) shells out to the svn binary; tests use an in-memory double.
package ra

import (
	"io"
	"time"

	"github.com/copyctl/copyctl/editor"
)

// Kind identifies what, if anything, exists at a path and revision.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindDir
)

// Revision selects a point in a source's history. Kind determines which
// other field, if any, is meaningful.
type Revision struct {
	Kind RevisionKind
	Num  int64
	Date time.Time
}

// RevisionKind enumerates the peg/operational revision selectors a user
// may specify. Base/Committed/Previous are meaningful only for working
// copies and must be rejected for URL sources (spec.md §4.1 step 1).
type RevisionKind int

const (
	RevUnspecified RevisionKind = iota
	RevNumber
	RevHead
	RevWorking
	RevBase
	RevCommitted
	RevPrevious
	RevDate
)

// IsWCOnly reports whether a revision kind is only meaningful against a
// working copy.
func (k RevisionKind) IsWCOnly() bool {
	switch k {
	case RevBase, RevCommitted, RevPrevious:
		return true
	default:
		return false
	}
}

// CommitCallback receives the finished commit once the editor closes.
type CommitCallback func(editor.CommitInfo) error

// Session is a live handle to a remote repository anchored at some URL.
// Open, Reparent and the per-call methods may be invoked in any order a
// handler requires; Session is single-owner and not safe for concurrent
// use by multiple goroutines.
type Session interface {
	// Open anchors the session at url. wcAnchor, if non-empty, names a
	// working copy the session should use for locking/tempfile purposes
	// (used by the WC->Repo handler).
	Open(url string, wcAnchor string) error
	// Reparent moves the session's anchor to url without reopening the
	// underlying connection.
	Reparent(url string) error
	// URL returns the session's current anchor.
	URL() string
	LatestRevnum() (int64, error)
	// CheckPath reports what kind of node, if any, exists at the
	// session-relative path rel as of rev (rev < 0 means latest/HEAD).
	CheckPath(rel string, rev int64) (Kind, error)
	UUID() (string, error)
	ReposRoot() (string, error)
	// GetFile streams the full text of the file at rel@rev into dst,
	// returning the concrete revision resolved and the node's properties.
	GetFile(rel string, rev int64, dst io.Writer) (realRev int64, props map[string]string, err error)
	// GetCommitEditor opens a commit transaction with the given revision
	// properties (e.g. the log message); cb fires once the edit closes.
	GetCommitEditor(revprops map[string]string, cb CommitCallback) (editor.Editor, error)
	// TraceHistory resolves the canonical URL of the node found by
	// interpreting path at pegRev, as of opRev (the history-tracing
	// primitive used to detect renames across peg/op revisions).
	TraceHistory(path string, pegRev, opRev Revision) (canonicalURL string, err error)
	// ExplicitMergeinfo returns the raw mergeinfo property text recorded
	// directly on rel@rev, or "" if none.
	ExplicitMergeinfo(rel string, rev int64) (string, error)
	// OldestRevision returns the revision in which the node at rel first
	// came into existence, as of rev (used for the implied mergeinfo
	// range, spec.md §4.3).
	OldestRevision(rel string, rev int64) (int64, error)
	// ListDir returns the immediate children of the directory at rel@rev,
	// the primitive a recursive WC checkout (C7) walks with.
	ListDir(rel string, rev int64) ([]DirEntry, error)
}

// DirEntry is one immediate child reported by ListDir.
type DirEntry struct {
	Name string
	Kind Kind
}
