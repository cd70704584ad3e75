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

func TestDispatchRoutesWCToWC(t *testing.T) {
	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, Text: "hi"}
	wcc.Nodes["/wc/branches"] = &fakewc.Node{Kind: wc.KindDir}

	col := Collaborators{WC: wcc}
	src := CopySource{Path: "/wc/trunk/foo"}

	info, err := CopyOne(context.Background(), col, Callbacks{}, src, "/wc/branches/bar", false)
	if err != nil {
		t.Fatalf("CopyOne: %v", err)
	}
	if info != nil {
		t.Fatalf("a WC->WC copy never produces commit info, got %+v", info)
	}
	if _, ok := wcc.Nodes["/wc/branches/bar"]; !ok {
		t.Fatal("expected dispatch to route to the WC->WC handler")
	}
}

func TestDispatchRoutesRepoToRepo(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["trunk/foo"] = &fakera.Node{Kind: ra.KindFile, CreatedAt: 1}

	col := Collaborators{
		NewSession: func() ra.Session { return fakera.New(repo) },
		PathDriver: editor.NewPathDriver(),
	}
	src := CopySource{Path: "svn://repo/trunk/foo"}

	info, err := CopyOne(context.Background(), col, Callbacks{}, src, "svn://repo/branches/foo", false)
	if err != nil {
		t.Fatalf("CopyOne: %v", err)
	}
	if info == nil || info.Revision != 2 {
		t.Fatalf("expected dispatch to route to the Repo->Repo handler and commit, got %+v", info)
	}
}

func TestDispatchRoutesWCToRepo(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["branches"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, URL: "svn://repo/trunk/foo", Revision: 5, Text: "hi"}

	col := Collaborators{
		WC:         wcc,
		NewSession: func() ra.Session { return fakera.New(repo) },
		PathDriver: editor.NewPathDriver(),
	}
	src := CopySource{Path: "/wc/trunk/foo"}

	info, err := CopyOne(context.Background(), col, Callbacks{}, src, "svn://repo/branches/foo", false)
	if err != nil {
		t.Fatalf("CopyOne: %v", err)
	}
	if info == nil || info.Revision != 2 {
		t.Fatalf("expected dispatch to route to the WC->Repo handler and commit, got %+v", info)
	}
}

func TestDispatchRoutesRepoToWC(t *testing.T) {
	repo := fakera.NewRepo("svn://repo", "uuid-1")
	repo.Head = 1
	repo.Nodes["foo"] = &fakera.Node{Kind: ra.KindDir, CreatedAt: 1}

	wcc := fakewc.New()
	wcc.Nodes["/wc"] = &fakewc.Node{Kind: wc.KindDir, ReposUUID: "uuid-1"}

	col := Collaborators{
		WC:         wcc,
		NewSession: func() ra.Session { return fakera.New(repo) },
	}
	src := CopySource{Path: "svn://repo/trunk/foo"}

	info, err := CopyOne(context.Background(), col, Callbacks{}, src, "/wc/bar", false)
	if err != nil {
		t.Fatalf("CopyOne: %v", err)
	}
	if info != nil {
		t.Fatalf("a Repo->WC checkout never produces commit info, got %+v", info)
	}
	if _, ok := wcc.Nodes["/wc/bar"]; !ok {
		t.Fatal("expected dispatch to route to the Repo->WC handler")
	}
}

// TestRunAsChildRetrySucceedsOnDirectoryCollision exercises the retry
// path in run(): a single-source as-child copy whose destination names an
// already-existing directory collides on the first attempt (the exact
// path already exists) and succeeds on the second, retried against
// dst/basename(src).
func TestRunAsChildRetrySucceedsOnDirectoryCollision(t *testing.T) {
	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile, Text: "hi"}
	wcc.Nodes["/wc/branches"] = &fakewc.Node{Kind: wc.KindDir}

	col := Collaborators{WC: wcc}
	src := CopySource{Path: "/wc/trunk/foo"}

	info, err := CopyOne(context.Background(), col, Callbacks{}, src, "/wc/branches", true)
	if err != nil {
		t.Fatalf("expected the as-child retry to succeed, got %v", err)
	}
	if info != nil {
		t.Fatalf("a WC->WC copy never produces commit info, got %+v", info)
	}
	if _, ok := wcc.Nodes["/wc/branches/foo"]; !ok {
		t.Fatal("expected the retried destination dst/basename(src) to have been created")
	}
}

// TestRunMultipleSourcesRequireAsChild covers run()'s up-front rejection
// before normalize or dispatch ever run.
func TestRunMultipleSourcesRequireAsChild(t *testing.T) {
	wcc := fakewc.New()
	wcc.Nodes["/wc/trunk/foo"] = &fakewc.Node{Kind: wc.KindFile}
	wcc.Nodes["/wc/trunk/bar"] = &fakewc.Node{Kind: wc.KindFile}
	wcc.Nodes["/wc/branches"] = &fakewc.Node{Kind: wc.KindDir}

	col := Collaborators{WC: wcc}
	sources := []CopySource{{Path: "/wc/trunk/foo"}, {Path: "/wc/trunk/bar"}}

	_, err := Copy(context.Background(), col, Callbacks{}, sources, "/wc/branches", false)
	if !IsKind(err, KindClientMultipleSourcesDisallowed) {
		t.Fatalf("expected client_multiple_sources_disallowed, got %v", err)
	}
}

func TestRunAsChildRetryNotAttemptedForNonCollisionErrors(t *testing.T) {
	wcc := fakewc.New()
	wcc.Nodes["/wc/branches"] = &fakewc.Node{Kind: wc.KindDir}

	col := Collaborators{WC: wcc}
	src := CopySource{Path: "/wc/trunk/missing"}

	_, err := CopyOne(context.Background(), col, Callbacks{}, src, "/wc/branches", true)
	if !IsKind(err, KindNodeUnknownKind) {
		t.Fatalf("expected the original node_unknown_kind error to surface unretried, got %v", err)
	}
}
