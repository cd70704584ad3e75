package copy

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// doRepoToWC is C7, spec.md §4.7. Unlike C5/C6 there is no repository
// commit: each pair either checks out a directory subtree or streams down
// a single file, and is added with history only when source and
// destination share a repository UUID. A foreign-UUID directory copy
// still leaves the checked-out subtree on disk, unversioned, and reports
// unsupported_feature rather than rolling anything back.
func doRepoToWC(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair) error {
	for i := range pairs {
		pairs[i].SrcOriginal = pairs[i].Src
	}

	srcAncestor, _, _ := commonAncestors(pairs)
	if len(pairs) == 1 {
		srcAncestor = dirnameURL(pairs[0].Src)
	}

	session := col.NewSession()
	if err := session.Open(srcAncestor, ""); err != nil {
		return wrapErr(KindRAIllegalURL, srcAncestor, "opening session", err)
	}

	for i := range pairs {
		p := &pairs[i]
		if err := checkCancel(ctx, cb.Cancel); err != nil {
			return err
		}

		canonical, err := session.TraceHistory(p.Src, p.SrcPegRevision, p.SrcOpRevision)
		if err != nil {
			return errors.Wrapf(err, "tracing history of %s", p.Src)
		}
		p.Src = canonical

		revnum, err := resolveRevnum(session, p.SrcOpRevision)
		if err != nil {
			return errors.Wrapf(err, "resolving revision for %s", p.Src)
		}
		p.SrcRevnum = revnum
		p.SrcRel = relPath(srcAncestor, p.Src)

		kind, err := session.CheckPath(p.SrcRel, p.SrcRevnum)
		if err != nil {
			return errors.Wrapf(err, "checking existence of %s@%d", p.SrcRel, p.SrcRevnum)
		}
		if kind == ra.KindNone {
			return newErr(KindFSNotFound, p.Src, "source does not exist at the requested revision")
		}
		p.SrcKind = fromRAKind(kind)

		dkind, err := col.WC.Exists(p.Dst)
		if err != nil {
			return wrapErr(KindNodeUnknownKind, p.Dst, "checking destination existence", err)
		}
		if dkind != wc.KindNone {
			return newErr(KindEntryExists, p.Dst, "destination already exists")
		}

		p.DstParent, p.BaseName = splitParentBase(p.Dst)
		pkind, err := col.WC.Exists(p.DstParent)
		if err != nil {
			return wrapErr(KindWCNotDirectory, p.DstParent, "checking destination parent", err)
		}
		if pkind != wc.KindDir {
			return newErr(KindWCNotDirectory, p.DstParent, "destination parent is not a directory")
		}
	}

	_, dstAncestor, _ := commonAncestors(pairs)
	if len(pairs) == 1 {
		dstAncestor = pairs[0].DstParent
	}
	lock, err := col.WC.AdmProbeOpen(dstAncestor)
	if err != nil {
		return wrapErr(KindWCNotDirectory, dstAncestor, "opening working copy lock", err)
	}
	defer col.WC.AdmClose(lock)

	// Step 5: a WC entry already recorded at dst whose on-disk file is
	// missing, and which isn't scheduled for deletion, is a logical
	// obstruction - the checkout below would silently paper over it.
	for _, p := range pairs {
		entry, err := col.WC.Entry(p.Dst)
		if err == nil && entry != nil && !entry.ScheduledForDelete {
			if onDisk, _ := col.WC.Exists(p.Dst); onDisk == wc.KindNone {
				return newErr(KindWCObstructedUpdate, p.Dst, "working copy entry exists but on-disk node is missing")
			}
		}
	}

	// Step 6: same_repositories compares the session's UUID against the
	// destination's parent WC entry's recorded repository UUID. Either
	// side being unobtainable means "assume different" - no history.
	sameRepo := false
	if uuid, uerr := session.UUID(); uerr == nil && uuid != "" {
		if parentEntry, perr := col.WC.Entry(dstAncestor); perr == nil && parentEntry != nil && parentEntry.ReposUUID == uuid {
			sameRepo = true
		}
	}

	if !sameRepo && col.DisallowForeignCheckout {
		for _, p := range pairs {
			if p.SrcKind == NodeDir {
				return newErr(KindUnsupportedFeature, p.Dst, "foreign repository checkout disallowed by configuration")
			}
		}
	}

	for i := range pairs {
		p := &pairs[i]
		if err := checkCancel(ctx, cb.Cancel); err != nil {
			return err
		}

		if p.SrcKind == NodeDir {
			if err := checkoutDirWithHistory(session, col.WC, cb, p, lock, sameRepo); err != nil {
				return err
			}
		} else {
			if err := checkoutFileWithHistory(session, col.WC, cb, p, lock, sameRepo); err != nil {
				return err
			}
			sleepForTimestamps()
		}
	}

	return nil
}

func checkoutDirWithHistory(session ra.Session, wcc wc.Client, cb Callbacks, p *CopyPair, lock wc.Lock, sameRepo bool) error {
	actualRev, err := wcc.Checkout(p.Src, p.Dst, p.SrcPegRevision, p.SrcOpRevision, wc.DepthInfinity)
	if err != nil {
		return errors.Wrapf(err, "checking out %s to %s", p.Src, p.Dst)
	}

	if !sameRepo {
		return newErr(KindUnsupportedFeature, p.Dst, "foreign repository; leaving as disjoint WC")
	}

	if err := wcc.AddWithHistory(p.Dst, lock, p.Src, actualRev); err != nil {
		return errors.Wrapf(err, "marking %s added with history", p.Dst)
	}

	mi, err := assembleMergeinfo(session, p.SrcRel, actualRev)
	if err != nil {
		return errors.Wrapf(err, "assembling mergeinfo for %s", p.Dst)
	}
	if !mi.IsEmpty() {
		if err := wcc.RecordMergeinfo(p.Dst, mi, lock); err != nil {
			return errors.Wrapf(err, "recording mergeinfo on %s", p.Dst)
		}
	}

	if cb.Notify != nil {
		cb.Notify(wc.Event{Action: wc.EventCopy, Path: p.Dst})
	}
	return nil
}

func checkoutFileWithHistory(session ra.Session, wcc wc.Client, cb Callbacks, p *CopyPair, lock wc.Lock, sameRepo bool) error {
	tmp, err := os.CreateTemp(p.DstParent, ".copyctl-"+p.BaseName+"-")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", p.Dst)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	realRev, props, err := session.GetFile(p.SrcRel, p.SrcRevnum, tmp)
	closeErr := tmp.Close()
	if err != nil {
		return errors.Wrapf(err, "fetching %s@%d", p.SrcRel, p.SrcRevnum)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "writing temp file for %s", p.Dst)
	}

	copyFromURL, copyFromRev := "", int64(0)
	if sameRepo {
		copyFromURL, copyFromRev = p.Src, realRev
	}
	if err := wcc.AddReposFile(p.Dst, lock, tmpPath, props, copyFromURL, copyFromRev); err != nil {
		return errors.Wrapf(err, "adding %s from fetched text", p.Dst)
	}

	if sameRepo {
		mi, err := assembleMergeinfo(session, p.SrcRel, realRev)
		if err != nil {
			return errors.Wrapf(err, "assembling mergeinfo for %s", p.Dst)
		}
		if !mi.IsEmpty() {
			if err := wcc.RecordMergeinfo(p.Dst, mi, lock); err != nil {
				return errors.Wrapf(err, "recording mergeinfo on %s", p.Dst)
			}
		}
	}

	// The WC "add file with text-base" primitive cannot itself emit a
	// notification, so C7 issues it explicitly (spec.md §4.7 step 7).
	if cb.Notify != nil {
		cb.Notify(wc.Event{Action: wc.EventAdd, Path: p.Dst})
	}
	return nil
}
