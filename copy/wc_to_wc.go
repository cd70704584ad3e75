package copy

import (
	"context"

	"github.com/copyctl/copyctl/wc"
)

// doWCToWC is C4, spec.md §4.4: the only handler that is not a single
// atomic repository commit. A failure mid-batch leaves already-completed
// pairs applied; this is accepted because WC state is locally recoverable.
//
// Note (spec.md §9): the source does not lock the source path itself for
// the copy case - if the source is concurrently locked and requires
// cleanup, that is a documented limitation, preserved here as-is.
func doWCToWC(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair, isMove bool, force bool) error {
	for i := range pairs {
		p := &pairs[i]
		kind, err := col.WC.Exists(p.Src)
		if err != nil {
			return wrapErr(KindNodeUnknownKind, p.Src, "checking source existence", err)
		}
		if kind == wc.KindNone {
			return newErr(KindNodeUnknownKind, p.Src, "path does not exist")
		}
		p.SrcKind = fromWCKind(kind)

		if dkind, err := col.WC.Exists(p.Dst); err != nil {
			return wrapErr(KindNodeUnknownKind, p.Dst, "checking destination existence", err)
		} else if dkind != wc.KindNone {
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

	if isMove {
		return wcToWCMove(ctx, col, cb, pairs, force)
	}
	return wcToWCCopy(ctx, col, cb, pairs)
}

func wcToWCCopy(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair) error {
	// All dsts share one parent per spec.md §3 invariant 6, so locking the
	// first pair's parent covers the whole batch.
	dstAncestorParent := pairs[0].DstParent

	lock, err := col.WC.AdmOpen(dstAncestorParent, wc.DepthInfinity, cb.Cancel)
	if err != nil {
		return wrapErr(KindWCNotDirectory, dstAncestorParent, "opening admin lock", err)
	}

	var failed error
	for i := range pairs {
		p := &pairs[i]
		if failed = checkCancel(ctx, cb.Cancel); failed != nil {
			break
		}
		if failed = col.WC.Copy(p.Src, lock, p.BaseName); failed != nil {
			break
		}
		if cb.Notify != nil {
			cb.Notify(wc.Event{Action: wc.EventCopy, Path: p.Dst})
		}
	}

	sleepForTimestamps()
	if cerr := col.WC.AdmClose(lock); cerr != nil && failed == nil {
		failed = cerr
	}
	return failed
}

func wcToWCMove(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair, force bool) error {
	for i := range pairs {
		p := &pairs[i]
		if err := checkCancel(ctx, cb.Cancel); err != nil {
			return err
		}

		srcParent, _ := splitParentBase(p.Src)
		depth := wc.DepthEmpty
		if p.SrcKind == NodeDir {
			depth = wc.DepthInfinity
		}

		srcLock, err := col.WC.AdmOpen(srcParent, depth, cb.Cancel)
		if err != nil {
			return wrapErr(KindWCNotDirectory, srcParent, "opening source admin lock", err)
		}

		var dstLock wc.Lock
		distinctDstLock := false
		switch {
		case srcParent == p.DstParent:
			dstLock = srcLock
		case p.SrcKind == NodeDir && isAncestorOrSame(p.Src, p.DstParent):
			dstLock, err = col.WC.AdmRetrieve(srcLock, p.DstParent)
			if err != nil {
				col.WC.AdmClose(srcLock)
				return wrapErr(KindWCNotDirectory, p.DstParent, "retrieving nested destination lock", err)
			}
		default:
			dstLock, err = col.WC.AdmOpen(p.DstParent, wc.DepthInfinity, cb.Cancel)
			if err != nil {
				col.WC.AdmClose(srcLock)
				return wrapErr(KindWCNotDirectory, p.DstParent, "opening destination admin lock", err)
			}
			distinctDstLock = true
		}

		copyErr := col.WC.Copy(p.Src, dstLock, p.BaseName)
		var delErr error
		if copyErr == nil {
			delErr = col.WC.Delete(p.Src, srcLock, force)
			if delErr == nil && cb.Notify != nil {
				cb.Notify(wc.Event{Action: wc.EventDelete, Path: p.Src})
			}
		}

		sleepForTimestamps()
		if distinctDstLock {
			col.WC.AdmClose(dstLock)
		}
		col.WC.AdmClose(srcLock)

		if copyErr != nil {
			return copyErr
		}
		if delErr != nil {
			return delErr
		}
		if cb.Notify != nil {
			cb.Notify(wc.Event{Action: wc.EventCopy, Path: p.Dst})
		}
	}
	return nil
}

func fromWCKind(k wc.Kind) NodeKind {
	switch k {
	case wc.KindFile:
		return NodeFile
	case wc.KindDir:
		return NodeDir
	default:
		return NodeNone
	}
}
