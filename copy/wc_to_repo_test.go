package copy

import (
	"context"
	"testing"

	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/internal/fakera"
	"github.com/copyctl/copyctl/internal/fakewc"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

func newMixedCollaborators(wcc *fakewc.Client, repo *fakera.Repo) Collaborators {
	return Collaborators{
		WC:         wcc,
		NewSession: func() ra.Session { return fakera.New(repo) },
		PathDriver: editor.NewPathDriver(),
	}
}

func TestDoWCToRepoCopy(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["branches"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, URL: "svn://repo/trunk/foo", Revision: 5, Text: "hi"}

	col := newMixedCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:    "/wc/trunk/foo",
		SrcAbs: "/wc/trunk/foo",
		Dst:    "svn://repo/branches/foo",
	}}

	info, err := doWCToRepo(context.Background(), col, Callbacks{}, pairs)
	if err != nil {
		t.Fatalf("doWCToRepo: %v", err)
	}
	if info == nil || info.Revision != 2 {
		t.Fatalf("expected commit at revision 2, got %+v", info)
	}
	if _, ok := repo.Nodes["branches/foo"]; !ok {
		t.Fatal("expected the commit item's path to be translated to the repository destination, not the WC source path")
	}
	if _, ok := repo.Nodes["/wc/trunk/foo"]; ok {
		t.Fatal("commit item path must not leak the on-disk WC path into the repository")
	}
}

func TestDoWCToRepoRejectsUnversionedSource(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	wcc := fakewc.New()
	col := newMixedCollaborators(wcc, repo)
	pairs := []CopyPair{{Src: "/wc/trunk/foo", SrcAbs: "/wc/trunk/foo", Dst: "svn://repo/branches/foo"}}

	_, err := doWCToRepo(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindNodeUnknownKind) {
		t.Fatalf("expected node_unknown_kind, got %v", err)
	}
}

func TestDoWCToRepoRejectsExistingDestination(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["branches/foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, URL: "svn://repo/trunk/foo", Revision: 5}

	col := newMixedCollaborators(wcc, repo)
	pairs := []CopyPair{{Src: "/wc/trunk/foo", SrcAbs: "/wc/trunk/foo", Dst: "svn://repo/branches/foo"}}

	_, err := doWCToRepo(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindFSAlreadyExists) {
		t.Fatalf("expected fs_already_exists, got %v", err)
	}
}

func TestDoWCToRepoDeclinedLogMessageIsSilentNoOp(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1

	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, URL: "svn://repo/trunk/foo", Revision: 5}

	col := newMixedCollaborators(wcc, repo)
	pairs := []CopyPair{{Src: "/wc/trunk/foo", SrcAbs: "/wc/trunk/foo", Dst: "svn://repo/branches/foo"}}

	cb := Callbacks{GetLogMsg: func(items []wc.CommitItem) (string, bool) { return "", false }}
	info, err := doWCToRepo(context.Background(), col, cb, pairs)
	if err != nil {
		t.Fatalf("expected declined log message to be a silent no-op, got %v", err)
	}
	if info != nil {
		t.Fatalf("expected no commit info, got %+v", info)
	}
}
