// Package wc defines the working-copy administrative contract consumed by
// the WC-side copy/move handlers (C4, C6, C7): lock/open/close, entry
// lookup, file add/delete, checkout, and mergeinfo recording. spec.md §6.2
// calls this out as an external collaborator; wc/localwc is a reference
// implementation backed by a simple on-disk admin directory.
package wc

import (
	"github.com/copyctl/copyctl/mergeinfo"
	"github.com/copyctl/copyctl/ra"
)

// Kind mirrors ra.Kind for working-copy nodes.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindDir
)

// Depth bounds how much of a subtree an admin lock or checkout covers.
type Depth int

const (
	DepthEmpty Depth = iota
	DepthFiles
	DepthImmediates
	DepthInfinity
)

// Lock is an open admin lock ("access baton"): a directory-scoped
// exclusive lock over a working-copy subtree.
type Lock interface {
	Path() string
	Close() error
}

// Entry is the subset of working-copy entry metadata the copy/move core
// needs: what URL/revision a path was checked out from, and any explicit
// mergeinfo recorded on it.
type Entry struct {
	URL                string
	Revision           int64
	Kind               Kind
	ScheduledForDelete bool
	ReposUUID          string // repository UUID this entry was checked out from
	Mergeinfo          string // raw explicit mergeinfo property text, "" if none
}

// Client is the working-copy administrative layer.
type Client interface {
	// AdmOpen acquires an exclusive lock on parent to the given depth.
	// cancel is polled periodically; a non-nil return aborts the open.
	AdmOpen(parent string, depth Depth, cancel func() error) (Lock, error)
	// AdmProbeOpen opens a lock at path only if path is already under
	// version control; used where the caller isn't sure path is a WC root.
	AdmProbeOpen(path string) (Lock, error)
	// AdmRetrieve returns the lock covering path from an already-open
	// ancestor lock, without acquiring a new one.
	AdmRetrieve(lock Lock, path string) (Lock, error)
	AdmClose(lock Lock) error

	// Entry reads the working-copy entry for path, or nil if path is not
	// under version control.
	Entry(path string) (*Entry, error)
	// Exists reports what's on disk at path, independent of version
	// control state.
	Exists(path string) (Kind, error)

	// Copy schedules src for addition at parent/baseName as a copy,
	// preserving history.
	Copy(src string, lock Lock, baseName string) error
	// Delete schedules src for deletion. force bypasses the local-
	// modification check (spec.md §6.1, move's force flag).
	Delete(src string, lock Lock, force bool) error
	// AddWithHistory marks an already-populated subtree at dst as added,
	// with copyfrom metadata pointing at srcURL@srcRev.
	AddWithHistory(dst string, lock Lock, srcURL string, srcRev int64) error
	// AddReposFile adds dst from the already-downloaded contents at
	// textPath, optionally with copyfrom metadata.
	AddReposFile(dst string, lock Lock, textPath string, props map[string]string, copyFromURL string, copyFromRev int64) error
	// Checkout populates dst from srcURL at the given peg/op revisions
	// and depth, returning the concrete revision actually checked out.
	Checkout(srcURL string, dst string, peg, op ra.Revision, depth Depth) (int64, error)

	ParseMergeinfo(e *Entry, path string) (mergeinfo.Mergeinfo, error)
	RecordMergeinfo(path string, mi mergeinfo.Mergeinfo, lock Lock) error

	// CrawlCommittables walks the subtrees rooted at paths and returns the
	// condensed set of pending local changes to include in a commit.
	CrawlCommittables(lock Lock, paths []string) ([]CommitItem, error)

	Notify(e Event)
}

// CommitItem is a single pending local change destined for a WC->Repo
// commit, after condensation.
type CommitItem struct {
	Path         string
	Kind         Kind
	IsAdd        bool
	IsDelete     bool
	PropChanges  map[string]string
	CopyFromURL  string
	CopyFromRev  int64
}

// EventAction enumerates the notifications the WC layer may emit.
type EventAction int

const (
	EventAdd EventAction = iota
	EventCopy
	EventDelete
	EventUpdate
)

// Event is a single notification passed to the installed notify callback.
type Event struct {
	Action EventAction
	Path   string
}
