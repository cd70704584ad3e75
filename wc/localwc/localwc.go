// Package localwc is the concrete wc.Client copyctl runs against: a
// simple on-disk administrative directory (".copyctl") holding one JSON
// entry file per versioned path, plus the actual working files on disk.
// Directory copy is grounded on the teacher's project_manager.go and
// vcs_source.go, both of which reach for github.com/termie/go-shutil's
// CopyTree rather than hand-rolling a recursive walk; renameWithFallback
// below is adapted from its internal/fs.go. Subtree walks use
// github.com/karrick/godirwalk for the same reason the teacher vendors
// it - a faster, allocation-light alternative to filepath.Walk.
package localwc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"

	"github.com/copyctl/copyctl/mergeinfo"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

const admDirName = ".copyctl"

// Client is the on-disk wc.Client implementation.
type Client struct {
	notify     func(wc.Event)
	newSession func() ra.Session
}

// New returns a Client. notify, if non-nil, receives every wc.Event passed
// to Notify; the client's other methods emit no events. newSession opens
// the RA session Checkout uses to materialize a subtree from the
// repository - libsvn_wc's checkout likewise drives its own RA session
// rather than being handed one by the caller.
func New(notify func(wc.Event), newSession func() ra.Session) *Client {
	return &Client{notify: notify, newSession: newSession}
}

type fsLock struct{ path string }

func (l *fsLock) Path() string { return l.path }
func (l *fsLock) Close() error { return nil }

// AdmOpen acquires a lock at parent. The reference implementation has no
// real concurrent-access protocol to arbitrate - Lock is a bookkeeping
// handle, not an flock - matching the admitted simplification that
// spec.md leaves to the WC collaborator.
func (c *Client) AdmOpen(parent string, depth wc.Depth, cancel func() error) (wc.Lock, error) {
	if fi, err := os.Stat(parent); err != nil || !fi.IsDir() {
		return nil, errors.Errorf("%s is not a directory", parent)
	}
	return &fsLock{path: parent}, nil
}

func (c *Client) AdmProbeOpen(path string) (wc.Lock, error) {
	if _, err := os.Stat(admFile(path, "")); err != nil {
		if parent, _ := splitParentBase(path); parent != "" && parent != path {
			return c.AdmProbeOpen(parent)
		}
		return nil, errors.Errorf("%s is not under version control", path)
	}
	return &fsLock{path: path}, nil
}

func (c *Client) AdmRetrieve(lock wc.Lock, path string) (wc.Lock, error) {
	return &fsLock{path: path}, nil
}

func (c *Client) AdmClose(lock wc.Lock) error { return nil }

type entryFile struct {
	URL                string `json:"url"`
	Revision           int64  `json:"revision"`
	Kind               int    `json:"kind"`
	ScheduledForDelete bool   `json:"scheduled_for_delete"`
	ReposUUID          string `json:"repos_uuid"`
	Mergeinfo          string `json:"mergeinfo"`
}

func admFile(path, suffix string) string {
	dir, base := filepath.Split(path)
	name := base + suffix + ".json"
	return filepath.Join(dir, admDirName, name)
}

func (c *Client) Entry(path string) (*wc.Entry, error) {
	b, err := os.ReadFile(admFile(path, ""))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ef entryFile
	if err := json.Unmarshal(b, &ef); err != nil {
		return nil, errors.Wrapf(err, "parsing entry file for %s", path)
	}
	return &wc.Entry{
		URL:                ef.URL,
		Revision:           ef.Revision,
		Kind:               wc.Kind(ef.Kind),
		ScheduledForDelete: ef.ScheduledForDelete,
		ReposUUID:          ef.ReposUUID,
		Mergeinfo:          ef.Mergeinfo,
	}, nil
}

func writeEntry(path string, e *wc.Entry) error {
	dir := filepath.Join(filepath.Dir(path), admDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	ef := entryFile{
		URL:                e.URL,
		Revision:           e.Revision,
		Kind:               int(e.Kind),
		ScheduledForDelete: e.ScheduledForDelete,
		ReposUUID:          e.ReposUUID,
		Mergeinfo:          e.Mergeinfo,
	}
	b, err := json.Marshal(ef)
	if err != nil {
		return err
	}
	return os.WriteFile(admFile(path, ""), b, 0644)
}

func (c *Client) Exists(path string) (wc.Kind, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return wc.KindNone, nil
	}
	if err != nil {
		return wc.KindNone, err
	}
	if fi.IsDir() {
		return wc.KindDir, nil
	}
	return wc.KindFile, nil
}

func (c *Client) Copy(src string, lock wc.Lock, baseName string) error {
	dst := filepath.Join(lock.Path(), baseName)
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		if err := copyDir(src, dst); err != nil {
			return err
		}
	} else if err := copyFile(src, dst); err != nil {
		return err
	}

	entry, err := c.Entry(src)
	if err != nil {
		return err
	}
	if entry != nil {
		return writeEntry(dst, entry)
	}
	return nil
}

// Delete schedules src for deletion. force bypasses the local-
// modification check the real client would otherwise run; this reference
// implementation has no modification-detection machinery to begin with,
// so force only makes the call ignore a failure to remove src from disk
// (an already-missing src is never a failure).
func (c *Client) Delete(src string, lock wc.Lock, force bool) error {
	if err := os.RemoveAll(src); err != nil && !force {
		return err
	}
	os.Remove(admFile(src, ""))
	return nil
}

func (c *Client) AddWithHistory(dst string, lock wc.Lock, srcURL string, srcRev int64) error {
	return writeEntry(dst, &wc.Entry{URL: srcURL, Revision: srcRev, Kind: wc.KindDir})
}

func (c *Client) AddReposFile(dst string, lock wc.Lock, textPath string, props map[string]string, copyFromURL string, copyFromRev int64) error {
	if err := renameWithFallback(textPath, dst); err != nil {
		return err
	}
	entry := &wc.Entry{Kind: wc.KindFile}
	if copyFromURL != "" {
		entry.URL, entry.Revision = copyFromURL, copyFromRev
	}
	if mi, ok := props["svn:mergeinfo"]; ok {
		entry.Mergeinfo = mi
	}
	return writeEntry(dst, entry)
}

// Checkout materializes the subtree at srcURL@op onto disk at dst, mirroring
// libsvn_wc's own checkout: the WC client opens and drives its own RA
// session rather than being handed a live one by the caller.
func (c *Client) Checkout(srcURL string, dst string, peg, op ra.Revision, depth wc.Depth) (int64, error) {
	session := c.newSession()
	if err := session.Open(srcURL, ""); err != nil {
		return 0, errors.Wrapf(err, "opening session at %s", srcURL)
	}

	rev := op.Num
	if op.Kind != ra.RevNumber {
		latest, err := session.LatestRevnum()
		if err != nil {
			return 0, errors.Wrap(err, "resolving HEAD revision")
		}
		rev = latest
	}

	if err := checkoutTree(session, "", dst, rev, depth); err != nil {
		return 0, err
	}
	return rev, nil
}

// checkoutTree recursively materializes the node at rel@rev (relative to
// the session's anchor, srcURL) onto disk at dst.
func checkoutTree(session ra.Session, rel, dst string, rev int64, depth wc.Depth) error {
	kind, err := session.CheckPath(rel, rev)
	if err != nil {
		return errors.Wrapf(err, "checking %s@%d", rel, rev)
	}

	switch kind {
	case ra.KindFile:
		return checkoutFile(session, rel, dst, rev)
	case ra.KindDir:
		if err := os.MkdirAll(dst, 0755); err != nil {
			return err
		}
		if depth == wc.DepthEmpty {
			return nil
		}

		children, err := session.ListDir(rel, rev)
		if err != nil {
			return errors.Wrapf(err, "listing %s@%d", rel, rev)
		}
		for _, child := range children {
			if depth == wc.DepthFiles && child.Kind != ra.KindFile {
				continue
			}
			childRel := child.Name
			if rel != "" {
				childRel = rel + "/" + child.Name
			}
			childDepth := depth
			if depth == wc.DepthImmediates || depth == wc.DepthFiles {
				childDepth = wc.DepthEmpty
			}
			if err := checkoutTree(session, childRel, filepath.Join(dst, child.Name), rev, childDepth); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("%s@%d does not exist", rel, rev)
	}
}

func checkoutFile(session ra.Session, rel, dst string, rev int64) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = session.GetFile(rel, rev, f)
	return err
}

func (c *Client) ParseMergeinfo(e *wc.Entry, path string) (mergeinfo.Mergeinfo, error) {
	if e == nil || e.Mergeinfo == "" {
		return mergeinfo.New(), nil
	}
	return mergeinfo.Parse(e.Mergeinfo)
}

func (c *Client) RecordMergeinfo(path string, mi mergeinfo.Mergeinfo, lock wc.Lock) error {
	entry, err := c.Entry(path)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &wc.Entry{}
	}
	entry.Mergeinfo = mi.String()
	return writeEntry(path, entry)
}

// CrawlCommittables walks the subtrees rooted at paths with godirwalk,
// condensing every versioned node it finds into a pending commit item.
func (c *Client) CrawlCommittables(lock wc.Lock, paths []string) ([]wc.CommitItem, error) {
	var items []wc.CommitItem
	for _, root := range paths {
		entry, err := c.Entry(root)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		items = append(items, commitItemFor(root, entry))

		if entry.Kind != wc.KindDir {
			continue
		}
		err = godirwalk.Walk(root, &godirwalk.Options{
			Unsorted: false,
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				if osPathname == root || strings.Contains(osPathname, admDirName) {
					return nil
				}
				childEntry, err := c.Entry(osPathname)
				if err != nil || childEntry == nil {
					return nil
				}
				items = append(items, commitItemFor(osPathname, childEntry))
				return nil
			},
		})
		if err != nil {
			return nil, errors.Wrapf(err, "crawling %s", root)
		}
	}
	return items, nil
}

func commitItemFor(path string, e *wc.Entry) wc.CommitItem {
	return wc.CommitItem{
		Path:        path,
		Kind:        e.Kind,
		IsAdd:       e.URL != "" || e.Revision == 0,
		IsDelete:    e.ScheduledForDelete,
		CopyFromURL: e.URL,
		CopyFromRev: e.Revision,
	}
}

func (c *Client) Notify(e wc.Event) {
	if c.notify != nil {
		c.notify(e)
	}
}

func splitParentBase(p string) (string, string) {
	trimmed := strings.TrimSuffix(p, string(filepath.Separator))
	return filepath.Dir(trimmed), filepath.Base(trimmed)
}

// renameWithFallback is adapted directly from the teacher's internal/fs.go
// (copyDir and copyFile below are thin wrappers over go-shutil): rename,
// falling back to a copy on a cross-device link error (and unconditionally
// on Windows for dirs).
func renameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := copyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	} else if terr, ok := err.(*os.LinkError); !ok {
		return err
	} else if terr.Err != syscall.EXDEV {
		return terr
	}

	var cerr error
	if fi.IsDir() {
		cerr = copyDir(src, dest)
	} else {
		cerr = copyFile(src, dest)
	}
	if cerr != nil {
		return cerr
	}
	return os.RemoveAll(src)
}

// copyDir recursively copies src to dest via shutil.CopyTree, skipping the
// administrative directory so a WC->WC copy never drags the source's own
// .copyctl metadata into the new tree - Copy writes a fresh entry for the
// copy's root only.
func copyDir(src, dest string) error {
	cfg := &shutil.CopyTreeOptions{
		Symlinks:     false,
		CopyFunction: shutil.Copy,
		Ignore: func(src string, contents []os.FileInfo) (ignore []string) {
			for _, fi := range contents {
				if fi.Name() == admDirName {
					ignore = append(ignore, fi.Name())
				}
			}
			return
		},
	}
	return shutil.CopyTree(src, dest, cfg)
}

func copyFile(src, dest string) error {
	return shutil.Copy(src, dest, false)
}
