// Package editor defines the delta-editor and path-driver contracts the
// core copy/move logic drives but never implements: a visitor-style
// interface that receives add/delete/prop-change calls in a specific
// traversal order, and closing it atomically commits a new revision.
//
// This package is consumed, not owned, by package copy (see spec.md §6.2);
// it exists here only as the narrow interface plus a reference path-driver
// implementation, the way the teacher's pkgtree package is a narrow
// interface over package trees without owning the build system that
// produces them.
package editor

import "time"

// FileBaton and DirBaton are opaque per-node handles returned by the
// editor as it is driven; the path driver thread them through its
// callback. Concrete editors define their own baton types.
type FileBaton interface{}
type DirBaton interface{}

// CommitInfo is returned when an edit closes successfully.
type CommitInfo struct {
	Revision int64
	Date     time.Time
	Author   string
}

// Editor is the delta-editor contract driven by the repo-side handlers
// (C5, C6). Implementations commit atomically on CloseEdit and must leave
// no partial state behind on AbortEdit.
type Editor interface {
	// AddFile opens path as a new file under parent. If copyFromURL is
	// non-empty the add carries copy-with-history metadata.
	AddFile(path string, parent DirBaton, copyFromURL string, copyFromRev int64) (FileBaton, error)
	// AddDirectory opens path as a new directory under parent, returning a
	// baton that stays open so children can be added beneath it.
	AddDirectory(path string, parent DirBaton, copyFromURL string, copyFromRev int64) (DirBaton, error)
	// DeleteEntry removes path as of revnum (a negative revnum means
	// "latest", used when the caller does not know a fixed base revision).
	DeleteEntry(path string, parent DirBaton, revnum int64) error
	ChangeFileProp(fb FileBaton, name, value string) error
	ChangeDirProp(db DirBaton, name, value string) error
	CloseFile(fb FileBaton) error
	CloseDirectory(db DirBaton) error
	// CloseEdit finalizes the transaction, producing the new revision.
	CloseEdit() (CommitInfo, error)
	// AbortEdit discards all pending changes; always safe to call after an
	// error, even if some batons are already closed.
	AbortEdit() error
}

// VisitFunc is invoked by a PathDriver once per path, parent-before-child.
// parent is the already-open directory baton for the path's parent (or nil
// at the anchor). The returned DirBaton, if any, becomes the parent baton
// for any subsequently visited children of path.
type VisitFunc func(path string, parent DirBaton) (DirBaton, error)

// PathDriver walks a set of repository-relative paths and invokes fn on
// each in parent-before-child order, so that a directory
// always exists (or is opened) before anything beneath it is visited.
type PathDriver interface {
	Drive(root DirBaton, paths []string, fn VisitFunc) error
}
