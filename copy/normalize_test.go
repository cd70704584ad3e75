package copy

import (
	"testing"

	"github.com/copyctl/copyctl/internal/fakewc"
	"github.com/copyctl/copyctl/ra"
	"github.com/copyctl/copyctl/wc"
)

func testCollaborators(wcc *fakewc.Client) Collaborators {
	return Collaborators{WC: wcc}
}

func TestNormalizeRejectsMixedLocality(t *testing.T) {
	col := testCollaborators(fakewc.New())
	_, err := normalize(col, []CopySource{
		{Path: "svn://repo/trunk/a"},
		{Path: "/wc/b"},
	}, "/wc/dst", false)
	if !IsKind(err, KindUnsupportedFeature) {
		t.Fatalf("expected unsupported_feature, got %v", err)
	}
}

func TestNormalizeRejectsWCOnlyPegOnURL(t *testing.T) {
	col := testCollaborators(fakewc.New())
	_, err := normalize(col, []CopySource{
		{Path: "svn://repo/trunk/a", PegRevision: ra.Revision{Kind: ra.RevBase}},
	}, "svn://repo/trunk/b", false)
	if !IsKind(err, KindClientBadRevision) {
		t.Fatalf("expected client_bad_revision, got %v", err)
	}
}

func TestNormalizeDefaultsPegAndOp(t *testing.T) {
	col := testCollaborators(fakewc.New())
	pairs, err := normalize(col, []CopySource{{Path: "svn://repo/trunk/a"}}, "svn://repo/trunk/b", false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if pairs[0].SrcPegRevision.Kind != ra.RevHead || pairs[0].SrcOpRevision.Kind != ra.RevHead {
		t.Fatalf("expected peg/op to default to head, got %+v", pairs[0])
	}
}

func TestNormalizeMultiSourceDestNaming(t *testing.T) {
	col := testCollaborators(fakewc.New())
	pairs, err := normalize(col, []CopySource{
		{Path: "svn://repo/trunk/a"},
		{Path: "svn://repo/trunk/b"},
	}, "svn://repo/branches/x", false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if pairs[0].Dst != "svn://repo/branches/x/a" || pairs[1].Dst != "svn://repo/branches/x/b" {
		t.Fatalf("unexpected multi-source dsts: %+v %+v", pairs[0], pairs[1])
	}
}

func TestNormalizeRejectsCopyIntoOwnDescendant(t *testing.T) {
	col := testCollaborators(fakewc.New())
	_, err := normalize(col, []CopySource{{Path: "/wc/a"}}, "/wc/a/b", false)
	if !IsKind(err, KindUnsupportedFeature) {
		t.Fatalf("expected unsupported_feature, got %v", err)
	}
}

func TestNormalizeRejectsSelfMove(t *testing.T) {
	col := testCollaborators(fakewc.New())
	_, err := normalize(col, []CopySource{{Path: "/wc/a"}}, "/wc/a", true)
	if !IsKind(err, KindUnsupportedFeature) {
		t.Fatalf("expected unsupported_feature, got %v", err)
	}
}

func TestNormalizeWCToRepoPromotion(t *testing.T) {
	wcc := fakewc.New()
	wcc.Nodes["/wc/a"] = &fakewc.Node{Kind: wc.KindDir, URL: "svn://repo/trunk/a", Revision: 7}
	col := testCollaborators(wcc)

	pairs, err := normalize(col, []CopySource{
		{Path: "/wc/a", Revision: ra.Revision{Kind: ra.RevNumber, Num: 3}},
	}, "svn://repo/trunk/b", false)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if pairs[0].Src != "svn://repo/trunk/a" {
		t.Fatalf("expected promotion to rewrite Src to the WC's recorded URL, got %q", pairs[0].Src)
	}
	if !srcsAreURLsOf(pairs) {
		t.Fatal("expected promoted pair to report as URL-sourced")
	}
}
