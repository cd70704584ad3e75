package copy

// commonAncestors computes the longest common path ancestor across all
// sources and all destinations in pairs. This is C2, spec.md §4.2.
//
// For a single pair, dstAncestor is the destination itself (per spec.md
// §9's note that single-pair callers should take dirname explicitly);
// crossAncestor is always the longest ancestor shared by srcAncestor and
// dstAncestor, the URL at which an RA session must be opened for
// repo->repo operations.
func commonAncestors(pairs []CopyPair) (srcAncestor, dstAncestor, crossAncestor string) {
	if len(pairs) == 0 {
		return "", "", ""
	}

	srcAncestor = pairs[0].Src
	for _, p := range pairs[1:] {
		srcAncestor = commonSegmentPrefix(srcAncestor, p.Src)
	}

	if len(pairs) == 1 {
		dstAncestor = pairs[0].Dst
	} else {
		dstAncestor = pairs[0].Dst
		for _, p := range pairs[1:] {
			dstAncestor = commonSegmentPrefix(dstAncestor, p.Dst)
		}
	}

	crossAncestor = commonSegmentPrefix(srcAncestor, dstAncestor)
	return srcAncestor, dstAncestor, crossAncestor
}
