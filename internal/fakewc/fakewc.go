// Package fakewc is an in-memory wc.Client double, letting copy package
// tests exercise the WC-side handlers (C4, C6, C7) without a real
// on-disk administrative area. Paths are just map keys; there is no
// actual filesystem I/O.
package fakewc

import (
	"os"
	"strings"

	"github.com/copyctl/copyctl/mergeinfo"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// Node is one entry in the fake working copy.
type Node struct {
	Kind               wc.Kind
	URL                string
	Revision           int64
	ScheduledForDelete bool
	ReposUUID          string
	Mergeinfo          string
	Text               string
	Props              map[string]string
	CopyFromURL        string
	CopyFromRev        int64
	IsAdd              bool
	// DiskMissing models a WC entry recorded for a path whose on-disk file
	// has been removed without telling the WC (e.g. a bare `rm`): Entry
	// still finds it, Exists reports it absent.
	DiskMissing bool
}

// Client is the fake working copy: a flat map of path -> Node, plus a
// notification sink tests can inspect.
type Client struct {
	Nodes   map[string]*Node
	Events  []wc.Event
	lockSeq int
}

// New returns an empty fake working copy.
func New() *Client {
	return &Client{Nodes: map[string]*Node{}}
}

type lock struct{ path string }

func (l *lock) Path() string { return l.path }
func (l *lock) Close() error { return nil }

func (c *Client) AdmOpen(parent string, depth wc.Depth, cancel func() error) (wc.Lock, error) {
	return &lock{path: parent}, nil
}

func (c *Client) AdmProbeOpen(path string) (wc.Lock, error) {
	return &lock{path: path}, nil
}

func (c *Client) AdmRetrieve(l wc.Lock, path string) (wc.Lock, error) {
	return &lock{path: path}, nil
}

func (c *Client) AdmClose(l wc.Lock) error { return nil }

func (c *Client) Entry(path string) (*wc.Entry, error) {
	n, ok := c.Nodes[path]
	if !ok {
		return nil, nil
	}
	return &wc.Entry{
		URL:                n.URL,
		Revision:           n.Revision,
		Kind:               n.Kind,
		ScheduledForDelete: n.ScheduledForDelete,
		ReposUUID:          n.ReposUUID,
		Mergeinfo:          n.Mergeinfo,
	}, nil
}

func (c *Client) Exists(path string) (wc.Kind, error) {
	n, ok := c.Nodes[path]
	if !ok || n.DiskMissing {
		return wc.KindNone, nil
	}
	return n.Kind, nil
}

func (c *Client) Copy(src string, l wc.Lock, baseName string) error {
	n, ok := c.Nodes[src]
	if !ok {
		return os.ErrNotExist
	}
	dst := joinSeg(l.Path(), baseName)
	cp := *n
	cp.CopyFromURL = n.URL
	c.Nodes[dst] = &cp
	return nil
}

func (c *Client) Delete(src string, l wc.Lock, force bool) error {
	delete(c.Nodes, src)
	return nil
}

func (c *Client) AddWithHistory(dst string, l wc.Lock, srcURL string, srcRev int64) error {
	n, ok := c.Nodes[dst]
	if !ok {
		n = &Node{Kind: wc.KindDir}
		c.Nodes[dst] = n
	}
	n.CopyFromURL = srcURL
	n.CopyFromRev = srcRev
	n.IsAdd = true
	return nil
}

func (c *Client) AddReposFile(dst string, l wc.Lock, textPath string, props map[string]string, copyFromURL string, copyFromRev int64) error {
	text, err := os.ReadFile(textPath)
	if err != nil {
		return err
	}
	c.Nodes[dst] = &Node{
		Kind:        wc.KindFile,
		Text:        string(text),
		Props:       props,
		CopyFromURL: copyFromURL,
		CopyFromRev: copyFromRev,
		IsAdd:       true,
	}
	return nil
}

func (c *Client) Checkout(srcURL string, dst string, peg, op ra.Revision, depth wc.Depth) (int64, error) {
	rev := op.Num
	if op.Kind == ra.RevHead || rev == 0 {
		rev = 1
	}
	c.Nodes[dst] = &Node{Kind: wc.KindDir, URL: srcURL, Revision: rev}
	return rev, nil
}

func (c *Client) ParseMergeinfo(e *wc.Entry, path string) (mergeinfo.Mergeinfo, error) {
	if e == nil {
		return mergeinfo.New(), nil
	}
	mi, err := mergeinfo.Parse(e.Mergeinfo)
	if err != nil {
		return mergeinfo.Mergeinfo{}, err
	}
	return mi, nil
}

func (c *Client) RecordMergeinfo(path string, mi mergeinfo.Mergeinfo, l wc.Lock) error {
	n, ok := c.Nodes[path]
	if !ok {
		return os.ErrNotExist
	}
	n.Mergeinfo = mi.String()
	return nil
}

func (c *Client) CrawlCommittables(l wc.Lock, paths []string) ([]wc.CommitItem, error) {
	items := make([]wc.CommitItem, 0, len(paths))
	for _, p := range paths {
		n, ok := c.Nodes[p]
		if !ok {
			continue
		}
		items = append(items, wc.CommitItem{
			Path:        p,
			Kind:        n.Kind,
			IsAdd:       n.IsAdd,
			CopyFromURL: n.CopyFromURL,
			CopyFromRev: n.CopyFromRev,
		})
	}
	return items, nil
}

func (c *Client) Notify(e wc.Event) {
	c.Events = append(c.Events, e)
}

func joinSeg(parent, child string) string {
	if parent == "" {
		return child
	}
	return strings.TrimSuffix(parent, "/") + "/" + child
}
