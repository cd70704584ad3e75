package copy

import (
	"github.com/copyctl/copyctl/ra"
)

// normalize turns user-supplied (sources, dst) into validated CopyPairs.
// This is C1, spec.md §4.1.
func normalize(col Collaborators, sources []CopySource, dst string, isMove bool) ([]CopyPair, error) {
	if len(sources) == 0 {
		return nil, newErr(KindUnsupportedFeature, "", "no sources given")
	}

	// Step 1: reject WC-only peg revisions on URL sources.
	for _, s := range sources {
		if isURL(s.Path) && s.PegRevision.Kind.IsWCOnly() {
			return nil, newErr(KindClientBadRevision, s.Path, "cannot use a working-copy-only peg revision on a URL source")
		}
	}

	// Step 4: locality homogeneity across sources.
	srcsAreURLs := isURL(sources[0].Path)
	for _, s := range sources[1:] {
		if isURL(s.Path) != srcsAreURLs {
			return nil, newErr(KindUnsupportedFeature, "", "Cannot mix repository and working copy sources")
		}
	}
	dstIsURL := isURL(dst)

	pairs := make([]CopyPair, 0, len(sources))
	for _, s := range sources {
		pair := CopyPair{
			Src:         s.Path,
			SrcOriginal: s.Path,
			IsMove:      isMove,
		}

		// Step 3: resolve peg/op revisions.
		peg := s.PegRevision
		if peg.Kind == ra.RevUnspecified {
			if isURL(s.Path) {
				peg = ra.Revision{Kind: ra.RevHead}
			} else {
				peg = ra.Revision{Kind: ra.RevWorking}
			}
		}
		op := s.Revision
		if op.Kind == ra.RevUnspecified {
			op = peg
		}
		pair.SrcPegRevision = peg
		pair.SrcOpRevision = op

		// Step 2: destination naming.
		if len(sources) > 1 {
			_, base := splitParentBase(s.Path)
			pair.Dst = joinSeg(dst, base)
		} else {
			pair.Dst = dst
		}

		pairs = append(pairs, pair)
	}

	// Step 5: no-copy-into-own-child, both sides local.
	if !srcsAreURLs && !dstIsURL {
		for _, p := range pairs {
			if isAncestorOrSame(p.Src, p.Dst) {
				return nil, newErr(KindUnsupportedFeature, p.Src, "Cannot copy path into its own descendant")
			}
		}
	}

	// Step 6: move-specific rules.
	if isMove {
		if srcsAreURLs != dstIsURL {
			return nil, newErr(KindUnsupportedFeature, "", "cannot move between a repository and a working copy")
		}
		for _, p := range pairs {
			if p.Src == p.Dst {
				return nil, newErr(KindUnsupportedFeature, p.Src, "Cannot move path into itself")
			}
		}
	}

	// Step 7: WC->repo promotion. A WC copy (not move) whose op revision
	// is anything but unspecified/working is really a repo->repo copy:
	// replace the source with the URL the WC entry was checked out from.
	if !isMove && !srcsAreURLs {
		for i := range pairs {
			p := &pairs[i]
			if p.SrcOpRevision.Kind == ra.RevUnspecified || p.SrcOpRevision.Kind == ra.RevWorking {
				continue
			}
			entry, err := col.WC.Entry(p.Src)
			if err != nil {
				return nil, wrapErr(KindNodeUnknownKind, p.Src, "reading working copy entry", err)
			}
			if entry == nil || entry.URL == "" {
				return nil, newErr(KindEntryMissingURL, p.Src, "working copy entry has no recorded URL")
			}
			p.Src = entry.URL
			p.SrcPegRevision = ra.Revision{Kind: ra.RevNumber, Num: entry.Revision}
			srcsAreURLs = true
		}
	}

	for i := range pairs {
		pairs[i].DstParent, pairs[i].BaseName = splitParentBase(pairs[i].Dst)
	}

	return pairs, nil
}

// srcsAreURLsOf reports the effective locality of a normalized pair set,
// accounting for any WC->repo promotion performed in step 7 of normalize.
func srcsAreURLsOf(pairs []CopyPair) bool {
	if len(pairs) == 0 {
		return false
	}
	return isURL(pairs[0].Src)
}
