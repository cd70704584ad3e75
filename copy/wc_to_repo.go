package copy

import (
	"context"

	"github.com/pkg/errors"

	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// doWCToRepo is C6, spec.md §4.6. Like C5, it executes as one commit
// transaction; unlike C5, the transaction is followed by two more
// independent cleanup phases (releasing the WC lock, removing tempfiles)
// whose failures are reconciled into a single composite error per §7
// rather than simply propagated.
func doWCToRepo(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair) (info *CommitInfo, err error) {
	for i := range pairs {
		pairs[i].SrcAbs = pairs[i].Src
	}

	_, dstAncestor, _ := commonAncestors(pairs)
	// Single-pair callers take dirname explicitly (spec.md §9); the
	// multi-pair ancestor is already a directory shared by every dst.
	anchor := dstAncestor
	if len(pairs) == 1 {
		anchor, _ = splitParentBase(pairs[0].Dst)
	}

	srcAncestor := pairs[0].SrcAbs
	for _, p := range pairs[1:] {
		srcAncestor = commonSegmentPrefix(srcAncestor, p.SrcAbs)
	}
	lock, lockErr := col.WC.AdmProbeOpen(srcAncestor)
	if lockErr != nil {
		return nil, wrapErr(KindWCNotDirectory, srcAncestor, "opening working copy lock", lockErr)
	}

	var commitErr, unlockErr, cleanupErr error
	commitErr = func() error {
		session := col.NewSession()
		if err := session.Open(anchor, srcAncestor); err != nil {
			return errors.Wrapf(err, "opening session at %s", anchor)
		}

		reposRoot, err := session.ReposRoot()
		if err != nil {
			return errors.Wrap(err, "fetching repository root")
		}
		// SrcRel and DstRel are both repository-relative, so the session
		// (and the commit editor's paths) are anchored at the root.
		if err := session.Reparent(reposRoot); err != nil {
			return errors.Wrapf(err, "reparenting session to %s", reposRoot)
		}

		paths := make([]string, 0, len(pairs)*2)
		infos := make([]*PathDriverInfo, len(pairs))
		for i := range pairs {
			p := &pairs[i]
			if err := checkCancel(ctx, cb.Cancel); err != nil {
				return err
			}

			entry, err := col.WC.Entry(p.SrcAbs)
			if err != nil {
				return wrapErr(KindNodeUnknownKind, p.SrcAbs, "reading working copy entry", err)
			}
			if entry == nil {
				return newErr(KindNodeUnknownKind, p.SrcAbs, "path is not under version control")
			}
			p.SrcRevnum = entry.Revision
			p.SrcRel = relPath(reposRoot, entry.URL)
			p.DstRel = relPath(reposRoot, p.Dst)

			dkind, err := session.CheckPath(p.DstRel, -1)
			if err != nil {
				return errors.Wrapf(err, "checking existence of %s", p.Dst)
			}
			if dkind != ra.KindNone {
				return newErr(KindFSAlreadyExists, p.Dst, "destination already exists")
			}

			infos[i] = &PathDriverInfo{
				SrcURL:    entry.URL,
				SrcPath:   p.SrcRel,
				DstPath:   p.DstRel,
				SrcKind:   fromWCKind(entry.Kind),
				SrcRevnum: p.SrcRevnum,
			}
			paths = append(paths, p.SrcAbs)
		}

		items, err := col.WC.CrawlCommittables(lock, paths)
		if err != nil {
			return errors.Wrap(err, "crawling working copy for commit items")
		}

		msg := ""
		if cb.GetLogMsg != nil {
			m, ok := cb.GetLogMsg(items)
			if !ok {
				return nil
			}
			msg = m
		}

		for i, p := range pairs {
			mi, err := assembleMergeinfoWC(session, col.WC, &wc.Entry{URL: infos[i].SrcURL, Revision: infos[i].SrcRevnum}, infos[i].SrcPath, infos[i].SrcRevnum)
			if err != nil {
				return errors.Wrapf(err, "assembling mergeinfo for %s", p.SrcAbs)
			}
			if !mi.IsEmpty() {
				applyMergeinfoProp(items, p.SrcAbs, mi.String())
			}
		}

		commitEditor, err := session.GetCommitEditor(map[string]string{"svn:log": msg}, nil)
		if err != nil {
			return errors.Wrap(err, "opening commit editor")
		}

		// CrawlCommittables reports items keyed by their on-disk working
		// copy path; the commit editor expects paths relative to the
		// session anchor. Translate each item onto the destination side
		// before driving the editor.
		driveErr := driveCommitItems(col.PathDriver, commitEditor, translateCommitItemPaths(pairs, infos, items))
		if driveErr != nil {
			commitEditor.AbortEdit()
			return driveErr
		}

		ci, err := commitEditor.CloseEdit()
		if err != nil {
			return errors.Wrap(err, "closing commit edit")
		}
		info = &ci
		return nil
	}()

	sleepForTimestamps()
	unlockErr = col.WC.AdmClose(lock)
	// Tempfile cleanup is handled by the concrete wc.Client implementation
	// as part of AdmClose in this design; cleanupErr is kept distinct so
	// the composite-error shape of spec.md §7 is preserved even though
	// this reference stack folds the two phases together.
	cleanupErr = nil

	if composed := ComposeErrors(commitErr, unlockErr, cleanupErr); composed != nil {
		return info, composed
	}
	return info, nil
}

// translateCommitItemPaths rewrites each commit item's on-disk working
// copy path onto the corresponding repository destination path: an item at
// pairs[i].SrcAbs (or a descendant of it, for a copied directory's
// contents) maps to infos[i].DstPath (or the matching descendant of it).
// Every item the crawl returns under a copy source is, by definition of
// this operation, an add-with-history at the destination - not whatever
// local add/modify scheduling the WC happens to carry for it - so IsAdd
// and CopyFrom* are stamped here rather than trusted from the crawl.
func translateCommitItemPaths(pairs []CopyPair, infos []*PathDriverInfo, items []wc.CommitItem) []wc.CommitItem {
	out := make([]wc.CommitItem, len(items))
	for i, it := range items {
		out[i] = it
		for j := range pairs {
			if !isAncestorOrSame(pairs[j].SrcAbs, it.Path) {
				continue
			}
			suffix := relPath(pairs[j].SrcAbs, it.Path)
			if suffix == "" {
				out[i].Path = infos[j].DstPath
				out[i].CopyFromURL = infos[j].SrcURL
			} else {
				out[i].Path = joinSeg(infos[j].DstPath, suffix)
				out[i].CopyFromURL = joinSeg(infos[j].SrcURL, suffix)
			}
			out[i].CopyFromRev = infos[j].SrcRevnum
			out[i].IsAdd = true
			out[i].IsDelete = false
			break
		}
	}
	return out
}

func applyMergeinfoProp(items []wc.CommitItem, path, mi string) {
	for i := range items {
		if items[i].Path == path {
			if items[i].PropChanges == nil {
				items[i].PropChanges = map[string]string{}
			}
			items[i].PropChanges["svn:mergeinfo"] = mi
			return
		}
	}
}

// driveCommitItems translates a condensed set of WC commit items into
// editor calls, visiting affected paths parent-before-child exactly like
// the repo->repo path driver use in C5.
func driveCommitItems(driver editor.PathDriver, ed editor.Editor, items []wc.CommitItem) error {
	byPath := make(map[string]wc.CommitItem, len(items))
	paths := make([]string, 0, len(items))
	for _, it := range items {
		byPath[it.Path] = it
		paths = append(paths, it.Path)
	}

	return driver.Drive(nil, paths, func(path string, parent editor.DirBaton) (editor.DirBaton, error) {
		item := byPath[path]
		switch {
		case item.IsDelete:
			return nil, ed.DeleteEntry(path, parent, -1)
		case item.IsAdd:
			db, err := addCommitItem(ed, path, parent, item)
			return db, err
		default:
			return nil, nil
		}
	})
}

func addCommitItem(ed editor.Editor, path string, parent editor.DirBaton, item wc.CommitItem) (editor.DirBaton, error) {
	if item.Kind == wc.KindDir {
		db, err := ed.AddDirectory(path, parent, item.CopyFromURL, item.CopyFromRev)
		if err != nil {
			return nil, err
		}
		for k, v := range item.PropChanges {
			if err := ed.ChangeDirProp(db, k, v); err != nil {
				return nil, err
			}
		}
		return db, nil
	}

	fb, err := ed.AddFile(path, parent, item.CopyFromURL, item.CopyFromRev)
	if err != nil {
		return nil, err
	}
	for k, v := range item.PropChanges {
		if err := ed.ChangeFileProp(fb, k, v); err != nil {
			return nil, err
		}
	}
	return nil, ed.CloseFile(fb)
}
