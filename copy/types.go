// Package copy implements the dispatch matrix over the four locality
// combinations (working-copy<->working-copy, working-copy<->repository,
// repository<->working-copy, repository<->repository) that a version
// control client's copy-with-history subsystem has to execute, along with
// the multi-pair batching, merge-info propagation, and commit/unlock/
// cleanup error reconciliation that ride along with it. See spec.md for
// the full component design this package implements (C1-C8).
package copy

import (
	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// NodeKind is the kind of filesystem node a copy source resolves to.
type NodeKind int

const (
	NodeNone NodeKind = iota
	NodeFile
	NodeDir
)

// CopySource is the caller-supplied description of one copy/move source:
// a path (URL or local), the operational revision whose content is used,
// and the peg revision in which path is interpreted.
type CopySource struct {
	Path        string
	Revision    ra.Revision
	PegRevision ra.Revision
}

// CopyPair is the internal working record C1 builds from a CopySource and
// a destination; every handler mutates it in place as its pre-flight
// checks resolve more information. See spec.md §3.
type CopyPair struct {
	Src         string // rewritten to a canonical URL for WC->repo promotion
	SrcOriginal string // original user-supplied src, before peg relocation
	SrcAbs      string // absolute form of a local src
	SrcKind     NodeKind

	SrcPegRevision ra.Revision
	SrcOpRevision  ra.Revision
	SrcRevnum      int64

	SrcRel string // src relative to the RA session anchor, URI-decoded

	Dst       string
	DstParent string
	BaseName  string
	DstRel    string

	// Resurrection marks a repo->repo pair whose src and dst URL coincide:
	// a legitimate reinstatement of a deleted node, add-only, no delete.
	Resurrection bool

	// IsMove distinguishes a move pair from a copy pair; set once by the
	// caller and never changed by a handler.
	IsMove bool
}

// PathDriverInfo is the per-pair record C5 builds to drive the commit
// editor: everything the per-path callback needs to decide what action to
// take at a given path.
type PathDriverInfo struct {
	SrcURL       string
	SrcPath      string
	DstPath      string
	SrcKind      NodeKind
	SrcRevnum    int64
	Resurrection bool
	IsMove       bool
	Mergeinfo    string // serialized mergeinfo to set on the added node
}

// CommitInfo is the result of a repo-side commit, returned by Copy/Move
// whenever a commit actually occurred.
type CommitInfo = editor.CommitInfo

// Callbacks bundles the three user-supplied callbacks spec.md §6.2 lists
// as external collaborators. All three are optional; a nil Cancel is
// never polled, a nil Notify drops notifications, a nil GetLogMsg causes
// repo-side commits to proceed with an empty log message.
type Callbacks struct {
	// Cancel is polled at every pair boundary and inside long loops
	// (spec.md §5); a non-nil return aborts the operation promptly.
	Cancel func() error
	Notify func(wc.Event)
	// GetLogMsg is invoked with the pending commit items before a repo-
	// side commit. Returning ok=false means the user declined to supply a
	// message; per spec.md §9 this is treated as a silent, successful
	// no-op, preserving the source behavior even though it is possibly
	// surprising.
	GetLogMsg func(items []wc.CommitItem) (msg string, ok bool)
}

// Collaborators bundles every external dependency the handlers need:
// working-copy administration, a way to obtain an unopened RA session,
// and the path driver used to walk a repo-side commit's affected paths.
type Collaborators struct {
	WC         wc.Client
	NewSession func() ra.Session
	PathDriver editor.PathDriver

	// DisallowForeignCheckout rejects a Repo->WC directory checkout across
	// a foreign repository UUID outright (C7, spec.md §4.7) instead of the
	// default behavior of performing it and leaving a disjoint, unversioned
	// tree on disk. Wired from internal/config's AllowForeignCheckout knob.
	DisallowForeignCheckout bool
}
