// Package fakera is an in-memory ra.Session double, letting copy package
// tests exercise the repo-side handlers (C5, C6, C7) without a real svn
// server. It models a single flat namespace of nodes keyed by exactly the
// relative path a caller passes (the session anchor is not applied), each
// with a history of revisions.
package fakera

import (
	"io"
	"strings"

	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/ra"
)

// Node is one versioned path in the fake repository.
type Node struct {
	Kind      ra.Kind
	Text      string
	Props     map[string]string
	Mergeinfo string
	// CreatedAt is the revision in which this node first came into
	// existence; OldestRevision reports it directly.
	CreatedAt int64
	// DeletedAt marks a node removed as of some revision; CheckPath treats
	// it as absent from that revision forward.
	DeletedAt int64
}

// Repo is the fake repository itself: a UUID, a root URL, the latest
// revision, and the node set as of that revision.
type Repo struct {
	UUID     string
	Root     string
	Head     int64
	Nodes    map[string]*Node
	Renames  map[string]string // canonical URL a path@peg traces back to
	Commits  []editor.CommitInfo
}

// NewRepo returns an empty fake repository rooted at root.
func NewRepo(root, uuid string) *Repo {
	return &Repo{Root: root, UUID: uuid, Nodes: map[string]*Node{}, Renames: map[string]string{}}
}

// Session is a single anchored handle into a Repo, implementing
// ra.Session.
type Session struct {
	repo   *Repo
	anchor string
}

// New returns a Session backed by repo, not yet anchored anywhere.
func New(repo *Repo) *Session {
	return &Session{repo: repo}
}

func (s *Session) Open(url string, wcAnchor string) error {
	if !strings.HasPrefix(url, s.repo.Root) && url != "" {
		return errNotInRepo(url)
	}
	s.anchor = url
	return nil
}

func (s *Session) Reparent(url string) error {
	s.anchor = url
	return nil
}

func (s *Session) URL() string { return s.anchor }

func (s *Session) LatestRevnum() (int64, error) { return s.repo.Head, nil }

func (s *Session) CheckPath(rel string, rev int64) (ra.Kind, error) {
	n, ok := s.repo.Nodes[rel]
	if !ok {
		return ra.KindNone, nil
	}
	if rev < 0 {
		rev = s.repo.Head
	}
	if n.CreatedAt > rev {
		return ra.KindNone, nil
	}
	if n.DeletedAt != 0 && n.DeletedAt <= rev {
		return ra.KindNone, nil
	}
	return n.Kind, nil
}

func (s *Session) UUID() (string, error) { return s.repo.UUID, nil }

func (s *Session) ReposRoot() (string, error) { return s.repo.Root, nil }

func (s *Session) GetFile(rel string, rev int64, dst io.Writer) (int64, map[string]string, error) {
	n, ok := s.repo.Nodes[rel]
	if !ok {
		return 0, nil, errNotFound(rel)
	}
	if _, err := io.WriteString(dst, n.Text); err != nil {
		return 0, nil, err
	}
	if rev < 0 {
		rev = s.repo.Head
	}
	return rev, n.Props, nil
}

func (s *Session) GetCommitEditor(revprops map[string]string, cb ra.CommitCallback) (editor.Editor, error) {
	s.repo.Head++
	ed := &commitEditor{repo: s.repo, rev: s.repo.Head, msg: revprops["svn:log"], cb: cb}
	return ed, nil
}

func (s *Session) TraceHistory(path string, pegRev, opRev ra.Revision) (string, error) {
	if canon, ok := s.repo.Renames[path]; ok {
		return canon, nil
	}
	return path, nil
}

func (s *Session) ExplicitMergeinfo(rel string, rev int64) (string, error) {
	if n, ok := s.repo.Nodes[rel]; ok {
		return n.Mergeinfo, nil
	}
	return "", nil
}

func (s *Session) OldestRevision(rel string, rev int64) (int64, error) {
	if n, ok := s.repo.Nodes[rel]; ok {
		return n.CreatedAt, nil
	}
	return 1, nil
}

// ListDir scans the flat Nodes map for direct children of rel: keys that
// have rel as a "/"-segment prefix with exactly one more segment.
func (s *Session) ListDir(rel string, rev int64) ([]ra.DirEntry, error) {
	if rev < 0 {
		rev = s.repo.Head
	}
	prefix := rel
	if prefix != "" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var entries []ra.DirEntry
	for path := range s.repo.Nodes {
		if !strings.HasPrefix(path, prefix) || path == rel {
			continue
		}
		child := strings.TrimPrefix(path, prefix)
		if idx := strings.Index(child, "/"); idx >= 0 {
			child = child[:idx]
		}
		if seen[child] {
			continue
		}
		childPath := prefix + child
		cn, ok := s.repo.Nodes[childPath]
		if !ok || cn.CreatedAt > rev || (cn.DeletedAt != 0 && cn.DeletedAt <= rev) {
			continue
		}
		seen[child] = true
		entries = append(entries, ra.DirEntry{Name: child, Kind: cn.Kind})
	}
	return entries, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "fakera: not found: " + string(e) }

type errNotInRepo string

func (e errNotInRepo) Error() string { return "fakera: url not in repository: " + string(e) }

// commitEditor is the editor.Editor fakera hands back from
// GetCommitEditor: every add/delete is applied directly to the backing
// Repo's node map as the path driver visits it.
type commitEditor struct {
	repo    *Repo
	rev     int64
	msg     string
	cb      ra.CommitCallback
	aborted bool
}

func (e *commitEditor) AddFile(path string, parent editor.DirBaton, copyFromURL string, copyFromRev int64) (editor.FileBaton, error) {
	e.repo.Nodes[path] = &Node{Kind: ra.KindFile, CreatedAt: e.rev, Props: map[string]string{}}
	return path, nil
}

func (e *commitEditor) AddDirectory(path string, parent editor.DirBaton, copyFromURL string, copyFromRev int64) (editor.DirBaton, error) {
	e.repo.Nodes[path] = &Node{Kind: ra.KindDir, CreatedAt: e.rev, Props: map[string]string{}}
	return path, nil
}

func (e *commitEditor) DeleteEntry(path string, parent editor.DirBaton, revnum int64) error {
	if n, ok := e.repo.Nodes[path]; ok {
		n.DeletedAt = e.rev
	}
	return nil
}

func (e *commitEditor) ChangeFileProp(fb editor.FileBaton, name, value string) error {
	path, _ := fb.(string)
	if n, ok := e.repo.Nodes[path]; ok {
		if name == "svn:mergeinfo" {
			n.Mergeinfo = value
		} else {
			n.Props[name] = value
		}
	}
	return nil
}

func (e *commitEditor) ChangeDirProp(db editor.DirBaton, name, value string) error {
	path, _ := db.(string)
	if n, ok := e.repo.Nodes[path]; ok {
		if name == "svn:mergeinfo" {
			n.Mergeinfo = value
		} else {
			n.Props[name] = value
		}
	}
	return nil
}

func (e *commitEditor) CloseFile(fb editor.FileBaton) error     { return nil }
func (e *commitEditor) CloseDirectory(db editor.DirBaton) error { return nil }

func (e *commitEditor) CloseEdit() (editor.CommitInfo, error) {
	info := editor.CommitInfo{Revision: e.rev, Author: "fakera"}
	e.repo.Commits = append(e.repo.Commits, info)
	if e.cb != nil {
		if err := e.cb(info); err != nil {
			return info, err
		}
	}
	return info, nil
}

func (e *commitEditor) AbortEdit() error {
	e.aborted = true
	for path, n := range e.repo.Nodes {
		if n.CreatedAt == e.rev {
			delete(e.repo.Nodes, path)
		} else if n.DeletedAt == e.rev {
			n.DeletedAt = 0
		}
	}
	e.repo.Head--
	return nil
}
