package copy

import (
	"context"
)

// dispatch routes a normalized pair set to the handler matching its
// locality combination (C8, spec.md §4.8), running repo-side handlers to
// a CommitInfo and WC-side handlers to a plain error.
func dispatch(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair, isMove bool, force bool) (*CommitInfo, error) {
	srcsAreURLs := srcsAreURLsOf(pairs)
	dstIsURL := isURL(pairs[0].Dst)

	switch {
	case !srcsAreURLs && !dstIsURL:
		return nil, doWCToWC(ctx, col, cb, pairs, isMove, force)
	case !srcsAreURLs && dstIsURL:
		return doWCToRepo(ctx, col, cb, pairs)
	case srcsAreURLs && !dstIsURL:
		return nil, doRepoToWC(ctx, col, cb, pairs)
	default:
		return doRepoToRepo(ctx, col, cb, pairs)
	}
}

// run is the shared body behind Copy and Move: normalize, dispatch, and -
// for single-source calls with the as-child flag set - retry once against
// dst/basename(src) if the first attempt collides with an existing node.
func run(ctx context.Context, col Collaborators, cb Callbacks, sources []CopySource, dst string, isMove bool, asChild bool, force bool) (*CommitInfo, error) {
	if len(sources) > 1 && !asChild {
		return nil, newErr(KindClientMultipleSourcesDisallowed, "", "multiple sources require the as-child flag")
	}

	pairs, err := normalize(col, sources, dst, isMove)
	if err != nil {
		return nil, err
	}

	info, err := dispatch(ctx, col, cb, pairs, isMove, force)
	if err == nil || !asChild || len(sources) != 1 {
		return info, err
	}
	if !IsKind(err, KindEntryExists) && !IsKind(err, KindFSAlreadyExists) {
		return info, err
	}

	childDst := joinSeg(dst, baseNameOf(sources[0].Path))
	pairs, rerr := normalize(col, sources, childDst, isMove)
	if rerr != nil {
		return nil, rerr
	}
	return dispatch(ctx, col, cb, pairs, isMove, force)
}

func baseNameOf(p string) string {
	_, base := splitParentBase(p)
	return base
}

// Copy copies one or more sources to dst, preserving history. When
// copyAsChild is true and |sources|>1, or a single source's destination
// basename is implied, dst is treated as a containing directory rather
// than an exact path; see run's retry-as-child handling for the single-
// source case.
func Copy(ctx context.Context, col Collaborators, cb Callbacks, sources []CopySource, dst string, copyAsChild bool) (*CommitInfo, error) {
	return run(ctx, col, cb, sources, dst, false, copyAsChild, false)
}

// Move moves one or more sources to dst. force bypasses the WC->WC local-
// modification check on the source (spec.md §6.1); it has no effect on
// the other three locality combinations.
func Move(ctx context.Context, col Collaborators, cb Callbacks, sources []CopySource, dst string, force bool, moveAsChild bool) (*CommitInfo, error) {
	return run(ctx, col, cb, sources, dst, true, moveAsChild, force)
}

// CopyOne and MoveOne are the legacy single-source adapters spec.md §6.1
// describes: a single CopySource in, asChild retry semantics preserved.
func CopyOne(ctx context.Context, col Collaborators, cb Callbacks, src CopySource, dst string, copyAsChild bool) (*CommitInfo, error) {
	return Copy(ctx, col, cb, []CopySource{src}, dst, copyAsChild)
}

func MoveOne(ctx context.Context, col Collaborators, cb Callbacks, src CopySource, dst string, force bool, moveAsChild bool) (*CommitInfo, error) {
	return Move(ctx, col, cb, []CopySource{src}, dst, force, moveAsChild)
}
