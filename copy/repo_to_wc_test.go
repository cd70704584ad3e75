package copy

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/copyctl/copyctl/internal/fakera"
	"github.com/copyctl/copyctl/internal/fakewc"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

func newRepoToWCCollaborators(wcc *fakewc.Client, repo *fakera.Repo) Collaborators {
	return Collaborators{
		WC:         wcc,
		NewSession: func() ra.Session { return fakera.New(repo) },
	}
}

func TestDoRepoToWCCheckoutDirSameRepo(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 3
	// doRepoToWC anchors the session one segment above the single pair's
	// source (dirnameURL("svn://repo/trunk/foo") == "svn://repo/trunk"), so
	// the node lives under the session-relative key "foo", not
	// "trunk/foo".
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}

	col := newRepoToWCCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	var events []wc.Event
	cb := Callbacks{Notify: func(e wc.Event) { events = append(events, e) }}

	if err := doRepoToWC(context.Background(), col, cb, pairs); err != nil {
		t.Fatalf("doRepoToWC: %v", err)
	}
	node, ok := wcc.Nodes["/wc/bar"]
	if !ok {
		t.Fatal("expected /wc/bar to be created in the working copy")
	}
	if !node.IsAdd || node.CopyFromURL != "svn://repo/trunk/foo" {
		t.Fatalf("expected an add-with-history record, got %+v", node)
	}
	if len(events) != 1 || events[0].Action != wc.EventCopy {
		t.Fatalf("expected one copy notification, got %+v", events)
	}
}

func TestDoRepoToWCForeignRepoLeavesDisjointWC(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-foreign")
	repo.Head = 1
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-local"}

	col := newRepoToWCCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	err := doRepoToWC(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindUnsupportedFeature) {
		t.Fatalf("expected unsupported_feature for a foreign-repository checkout, got %v", err)
	}
	node, ok := wcc.Nodes["/wc/bar"]
	if !ok {
		t.Fatal("a foreign checkout must still leave the fetched tree on disk")
	}
	if node.IsAdd {
		t.Fatal("a foreign checkout must not be marked added with history")
	}
}

func TestDoRepoToWCForeignRepoDisallowedByConfig(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-foreign")
	repo.Head = 1
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-local"}

	col := newRepoToWCCollaborators(wcc, repo)
	col.DisallowForeignCheckout = true
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	err := doRepoToWC(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindUnsupportedFeature) {
		t.Fatalf("expected unsupported_feature, got %v", err)
	}
	if _, ok := wcc.Nodes["/wc/bar"]; ok {
		t.Fatal("expected no checkout to have been attempted when foreign checkout is disallowed")
	}
}

func TestDoRepoToWCCheckoutFile(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["foo.txt"] = &fakera.Node{Kind: ra.KindFile, Text: "hello world", CreatedAt: 1}

	tmpDir := t.TempDir()
	wcc := fakewc.New()
	wcc.Nodes[tmpDir] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}

	col := newRepoToWCCollaborators(wcc, repo)
	dst := filepath.Join(tmpDir, "bar.txt")
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo.txt",
		Dst:            dst,
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	if err := doRepoToWC(context.Background(), col, Callbacks{}, pairs); err != nil {
		t.Fatalf("doRepoToWC: %v", err)
	}

	node, ok := wcc.Nodes[dst]
	if !ok || node.Text != "hello world" {
		t.Fatalf("expected fetched text to be added, got %+v ok=%v", node, ok)
	}
	if node.CopyFromURL != "svn://repo/trunk/foo.txt" {
		t.Fatalf("expected copy-from recorded for a same-repository file fetch, got %q", node.CopyFromURL)
	}
}

func TestDoRepoToWCRejectsExistingDestination(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}
	wcc.Nodes["/wc/bar"] = &fakewc.Node{Kind: wc.KindDir}

	col := newRepoToWCCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	err := doRepoToWC(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindEntryExists) {
		t.Fatalf("expected entry_exists, got %v", err)
	}
}

func TestDoRepoToWCObstructedUpdate(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}
	// Node present (so Entry finds it, recorded not-deleted) but marked
	// disk-missing, modeling an entry whose file vanished underfoot.
	wcc.Nodes["/wc/bar"] = &fakewc.Node{Kind: wc.KindDir, DiskMissing: true}

	col := newRepoToWCCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/foo",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	err := doRepoToWC(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindWCObstructedUpdate) {
		t.Fatalf("expected wc_obstructed_update, got %v", err)
	}
}

func TestDoRepoToWCRejectsMissingSource(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}

	col := newRepoToWCCollaborators(wcc, repo)
	pairs := []CopyPair{{
		Src:            "svn://repo/trunk/gone",
		Dst:            "/wc/bar",
		SrcPegRevision: ra.Revision{Kind: ra.RevHead},
		SrcOpRevision:  ra.Revision{Kind: ra.RevHead},
	}}

	err := doRepoToWC(context.Background(), col, Callbacks{}, pairs)
	if !IsKind(err, KindFSNotFound) {
		t.Fatalf("expected fs_not_found, got %v", err)
	}
}
