package copy

import (
	"github.com/pkg/errors"

	"github.com/copyctl/copyctl/mergeinfo"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// assembleMergeinfo computes the mergeinfo a copy's destination must carry:
// the union of the implied range (the node's whole lifetime up to
// srcRevnum) and whatever explicit mergeinfo is already recorded on the
// source. This is C3, spec.md §4.3.
func assembleMergeinfo(session ra.Session, srcRel string, srcRevnum int64) (mergeinfo.Mergeinfo, error) {
	oldest, err := session.OldestRevision(srcRel, srcRevnum)
	if err != nil {
		return mergeinfo.Mergeinfo{}, errors.Wrapf(err, "computing implied mergeinfo for %s", srcRel)
	}

	implied := mergeinfo.New()
	implied.Set(srcRel, mergeinfo.RangeList{{Start: oldest - 1, End: srcRevnum}})

	explicitText, err := session.ExplicitMergeinfo(srcRel, srcRevnum)
	if err != nil {
		return mergeinfo.Mergeinfo{}, errors.Wrapf(err, "fetching explicit mergeinfo for %s", srcRel)
	}
	explicit, err := mergeinfo.Parse(explicitText)
	if err != nil {
		return mergeinfo.Mergeinfo{}, errors.Wrapf(err, "parsing explicit mergeinfo for %s", srcRel)
	}

	return implied.Merge(explicit), nil
}

// assembleMergeinfoWC is assembleMergeinfo plus the working copy's own
// explicit mergeinfo, used only by the WC->Repo handler (C6, spec.md
// §4.6 step 7).
func assembleMergeinfoWC(session ra.Session, wcc wc.Client, entry *wc.Entry, srcRel string, srcRevnum int64) (mergeinfo.Mergeinfo, error) {
	base, err := assembleMergeinfo(session, srcRel, srcRevnum)
	if err != nil {
		return mergeinfo.Mergeinfo{}, err
	}
	wcMI, err := wcc.ParseMergeinfo(entry, srcRel)
	if err != nil {
		return mergeinfo.Mergeinfo{}, errors.Wrapf(err, "parsing working copy mergeinfo for %s", srcRel)
	}
	return base.Merge(wcMI), nil
}
