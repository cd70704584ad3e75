package copy

import (
	"context"

	"github.com/pkg/errors"

	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

// doRepoToRepo is C5, spec.md §4.5: the most intricate handler. The whole
// batch executes as one commit transaction - either every pair lands in
// the new revision or none does.
func doRepoToRepo(ctx context.Context, col Collaborators, cb Callbacks, pairs []CopyPair) (*CommitInfo, error) {
	_, _, topURL := commonAncestors(pairs)

	// Step 2: mark resurrection for src==dst pairs; raising the anchor to
	// the parent is required because a node can never be added at the
	// session root itself.
	for i := range pairs {
		if pairs[i].Src == pairs[i].Dst {
			pairs[i].Resurrection = true
		}
	}
	for i := range pairs {
		if pairs[i].Resurrection && pairs[i].Src == topURL {
			topURL = dirnameURL(topURL)
			break
		}
	}

	if topURL == "" {
		return nil, newErr(KindUnsupportedFeature, "", "Source and dest appear not to be in the same repository")
	}
	session := col.NewSession()
	if err := session.Open(topURL, ""); err != nil {
		return nil, wrapErr(KindRAIllegalURL, topURL, "opening session", err)
	}

	// Step 4: a copy of a node to one of its own URL ancestors (the source
	// lies below the destination) also requires raising the anchor,
	// because the destination must not be the RA session root either.
	reposRoot, err := session.ReposRoot()
	if err != nil {
		return nil, wrapErr(KindRAIllegalURL, topURL, "fetching repository root", err)
	}
	for i := range pairs {
		p := &pairs[i]
		if p.Dst != reposRoot && isAncestorOrSame(p.Dst, p.Src) && p.Dst != p.Src {
			p.Resurrection = true
			topURL = dirnameURL(topURL)
			if err := session.Reparent(topURL); err != nil {
				return nil, wrapErr(KindRAIllegalURL, topURL, "reparenting session", err)
			}
		}
	}

	head, err := session.LatestRevnum()
	if err != nil {
		return nil, errors.Wrap(err, "fetching latest revision")
	}

	infos := make([]*PathDriverInfo, len(pairs))
	for i := range pairs {
		p := &pairs[i]

		if err := checkCancel(ctx, cb.Cancel); err != nil {
			return nil, err
		}

		revnum, err := resolveRevnum(session, p.SrcOpRevision)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving revision for %s", p.Src)
		}
		p.SrcRevnum = revnum

		canonical, err := session.TraceHistory(p.Src, p.SrcPegRevision, p.SrcOpRevision)
		if err != nil {
			return nil, errors.Wrapf(err, "tracing history of %s", p.Src)
		}
		p.Src = canonical

		p.SrcRel = relPath(topURL, p.Src)
		p.DstRel = relPath(topURL, p.Dst)

		if p.SrcRel == "" && p.IsMove {
			return nil, newErr(KindUnsupportedFeature, p.Src, "Cannot move URL into itself")
		}

		kind, err := session.CheckPath(p.SrcRel, p.SrcRevnum)
		if err != nil {
			return nil, errors.Wrapf(err, "checking existence of %s@%d", p.SrcRel, p.SrcRevnum)
		}
		if kind == ra.KindNone {
			return nil, newErr(KindFSNotFound, p.Src, "source does not exist at the requested revision")
		}
		p.SrcKind = fromRAKind(kind)

		if !p.Resurrection {
			dkind, err := session.CheckPath(p.DstRel, head)
			if err != nil {
				return nil, errors.Wrapf(err, "checking existence of %s@%d", p.DstRel, head)
			}
			if dkind != ra.KindNone {
				return nil, newErr(KindFSAlreadyExists, p.Dst, "destination already exists")
			}
		}

		infos[i] = &PathDriverInfo{
			SrcURL:       p.Src,
			SrcPath:      p.SrcRel,
			DstPath:      p.DstRel,
			SrcKind:      p.SrcKind,
			SrcRevnum:    p.SrcRevnum,
			Resurrection: p.Resurrection,
			IsMove:       p.IsMove,
		}
	}

	// Step 7: gather commit items and ask for a log message.
	items := commitItemsForRepoToRepo(pairs)
	msg := ""
	if cb.GetLogMsg != nil {
		m, ok := cb.GetLogMsg(items)
		if !ok {
			// User declined to supply a message: per spec.md §9 this is a
			// silent, successful no-op, preserving documented behavior.
			return nil, nil
		}
		msg = m
	}

	// Step 8: compute merged mergeinfo per pair.
	for i, info := range infos {
		mi, err := assembleMergeinfo(session, info.SrcPath, info.SrcRevnum)
		if err != nil {
			return nil, errors.Wrapf(err, "assembling mergeinfo for %s", pairs[i].Src)
		}
		if !mi.IsEmpty() {
			info.Mergeinfo = mi.String()
		}
	}

	commitEditor, err := session.GetCommitEditor(map[string]string{"svn:log": msg}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening commit editor")
	}

	paths, addAt, deleteAt := flattenRepoToRepoPaths(pairs, infos)

	driveErr := col.PathDriver.Drive(nil, paths, func(path string, parent editor.DirBaton) (editor.DirBaton, error) {
		if info, ok := addAt[path]; ok {
			if info.Resurrection && info.IsMove {
				return nil, nil
			}
			return addNode(commitEditor, path, parent, info)
		}
		if deleteAt[path] {
			return nil, commitEditor.DeleteEntry(path, parent, -1)
		}
		return nil, nil
	})

	if driveErr != nil {
		commitEditor.AbortEdit()
		return nil, driveErr
	}

	info, err := commitEditor.CloseEdit()
	if err != nil {
		return nil, errors.Wrap(err, "closing commit edit")
	}
	return &info, nil
}

// commitItemsForRepoToRepo builds the commit-item list handed to the
// log-message callback: one add per pair, plus one delete per pair that
// is a move and not a resurrection (spec.md §4.5 step 7).
func commitItemsForRepoToRepo(pairs []CopyPair) []wc.CommitItem {
	items := make([]wc.CommitItem, 0, len(pairs)*2)
	for _, p := range pairs {
		items = append(items, wc.CommitItem{
			Path:        p.Dst,
			Kind:        wcKindOf(p.SrcKind),
			IsAdd:       true,
			CopyFromURL: p.Src,
			CopyFromRev: p.SrcRevnum,
		})
		if p.IsMove && !p.Resurrection {
			items = append(items, wc.CommitItem{
				Path:     p.Src,
				Kind:     wcKindOf(p.SrcKind),
				IsDelete: true,
			})
		}
	}
	return items
}

func wcKindOf(k NodeKind) wc.Kind {
	switch k {
	case NodeFile:
		return wc.KindFile
	case NodeDir:
		return wc.KindDir
	default:
		return wc.KindNone
	}
}

func flattenRepoToRepoPaths(pairs []CopyPair, infos []*PathDriverInfo) (paths []string, addAt map[string]*PathDriverInfo, deleteAt map[string]bool) {
	addAt = make(map[string]*PathDriverInfo, len(pairs))
	deleteAt = make(map[string]bool)
	for i, p := range pairs {
		info := infos[i]
		paths = append(paths, info.DstPath)
		addAt[info.DstPath] = info
		if p.IsMove && !p.Resurrection {
			paths = append(paths, info.SrcPath)
			deleteAt[info.SrcPath] = true
		}
	}
	return paths, addAt, deleteAt
}

func addNode(ed editor.Editor, path string, parent editor.DirBaton, info *PathDriverInfo) (editor.DirBaton, error) {
	if info.SrcKind == NodeDir {
		db, err := ed.AddDirectory(path, parent, info.SrcURL, info.SrcRevnum)
		if err != nil {
			return nil, err
		}
		if info.Mergeinfo != "" {
			if err := ed.ChangeDirProp(db, "svn:mergeinfo", info.Mergeinfo); err != nil {
				return nil, err
			}
		}
		return db, nil
	}

	fb, err := ed.AddFile(path, parent, info.SrcURL, info.SrcRevnum)
	if err != nil {
		return nil, err
	}
	if info.Mergeinfo != "" {
		if err := ed.ChangeFileProp(fb, "svn:mergeinfo", info.Mergeinfo); err != nil {
			return nil, err
		}
	}
	return nil, ed.CloseFile(fb)
}

func fromRAKind(k ra.Kind) NodeKind {
	switch k {
	case ra.KindFile:
		return NodeFile
	case ra.KindDir:
		return NodeDir
	default:
		return NodeNone
	}
}
