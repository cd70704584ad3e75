package copy

import (
	"context"
	"testing"

	"github.com/copyctl/copyctl/editor"
	"github.com/copyctl/copyctl/internal/fakera"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

func newFakeRepoCollaborators(repo *fakera.Repo) Collaborators {
	return Collaborators{
		NewSession: func() ra.Session { return fakera.New(repo) },
		PathDriver: editor.NewPathDriver(),
	}
}

func TestDoRepoToRepoCopy(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["trunk/foo"] = &fakera.Node{Kind: ra.KindFile, Text: "hi", CreatedAt: 1}

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "svn://repo/branches/x/foo",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	info, err := doRepoToRepo(context.Background(), col, Callbacks{}, pairs)
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if info == nil || info.Revision != 2 {
		t.Fatalf("expected commit at revision 2, got %+v", info)
	}
	if _, ok := repo.Nodes["branches/x/foo"]; !ok {
		t.Fatal("expected destination node to exist in the repo after commit")
	}
	if _, ok := repo.Nodes["trunk/foo"]; !ok {
		t.Fatal("a copy must not remove the source")
	}
}

func TestDoRepoToRepoMoveDeletesSource(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["trunk/foo"] = &fakera.Node{Kind: ra.KindFile, Text: "hi", CreatedAt: 1}

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "svn://repo/branches/x/foo",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
		IsMove:         true,
	}}

	info, err := doRepoToRepo(context.Background(), col, Callbacks{}, pairs)
	if err != nil {
		t.Fatalf("doRepoToRepo: %v", err)
	}
	if info.Revision != 2 {
		t.Fatalf("expected commit at revision 2, got %d", info.Revision)
	}
	n, ok := repo.Nodes["trunk/foo"]
	if !ok || n.DeletedAt != 2 {
		t.Fatalf("expected source marked deleted at revision 2, got %+v ok=%v", n, ok)
	}
}

func TestDoRepoToRepoRejectsExistingDestination(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["trunk/foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1}
	repo.Nodes["branches/foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1}

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "svn://repo/branches/foo",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	_, err := doRepoToRepo(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindFSAlreadyExists) {
		t.Fatalf("expected fs_already_exists, got %v", err)
	}
}

func TestDoRepoToRepoRejectsMissingSource(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/gone",
		Dst:            "svn://repo/branches/gone",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	_, err := doRepoToRepo(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindFSNotFound) {
		t.Fatalf("expected fs_not_found, got %v", err)
	}
}

func TestDoRepoToRepoResurrection(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 2
	// The session anchor is raised to the parent of src/dst (a node can
	// never be added at the session root), so node paths here are relative
	// to "svn://repo/trunk", not to the repository root.
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1, DeletedAt: 2}

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "svn://repo/trunk/foo",
		SrcPegRevision: ra.Revision{Kind: ra.RevNumber, Num: 1},
		SrcOpRevision:  ra.Revision{Kind: ra.RevNumber, Num: 1},
	}}

	info, err := doRepoToRepo(context.Background(), col, Callbacks{}, pairs)
	if err != nil {
		t.Fatalf("doRepoToRepo resurrection: %v", err)
	}
	if info.Revision != 3 {
		t.Fatalf("expected commit at revision 3, got %d", info.Revision)
	}
	n, ok := repo.Nodes["foo"]
	if !ok || n.DeletedAt != 0 {
		t.Fatalf("expected the resurrected node to be live again, got %+v ok=%v", n, ok)
	}
}

func TestDoRepoToRepoDeclinedLogMessageIsSilentNoOp(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["trunk/foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1}

	col := newFakeRepoCollaborators(repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "svn://repo/branches/foo",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	cb := Callbacks{GetLogMsg: func(items []wc.CommitItem) (string, bool) {
		return "", false
	}}

	info, err := doRepoToRepo(context.Background(), col, cb, pairs)
	if err != nil {
		t.Fatalf("expected a declined log message to be a silent no-op, got error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected no commit info when the log message is declined, got %+v", info)
	}
	if _, ok := repo.Nodes["branches/foo"]; ok {
		t.Fatal("expected no commit to have happened")
	}
	if repo.Head != 1 {
		t.Fatalf("expected the commit editor never to have been opened, head should stay at 1, got %d", repo.Head)
	}
}
