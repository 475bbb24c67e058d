package evidence

import "testing"

func TestSignatureStripsNumericPrefixAndNoiseTail(t *testing.T) {
	cases := []struct {
		stem string
		want string
	}{
		{"01-screenshot-rerun", "screenshot"},
		{"02_screenshot_retry_latest", "screenshot"},
		{"screenshot", "screenshot"},
		{"03-login-flow-attempt", "login-flow"},
	}
	for _, c := range cases {
		if got := Signature(c.stem); got != c.want {
			t.Errorf("Signature(%q) = %q, want %q", c.stem, got, c.want)
		}
	}
}

func TestGroupBySignatureGroupsRerunsTogether(t *testing.T) {
	files := []ArtifactFile{
		{Path: "01-screenshot.png", Stem: "01-screenshot", ModTime: 1},
		{Path: "02-screenshot-rerun.png", Stem: "02-screenshot-rerun", ModTime: 2},
		{Path: "unrelated.log", Stem: "unrelated", ModTime: 3},
	}
	groups := GroupBySignature(files)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestDedupGroupPruneKeepsNewestWhenNoisy(t *testing.T) {
	g := DedupGroup{
		Signature: "screenshot",
		HasNoise:  true,
		Files: []ArtifactFile{
			{Path: "a", ModTime: 1},
			{Path: "b", ModTime: 3},
			{Path: "c", ModTime: 2},
		},
	}
	kept, removed := g.Prune(1)
	if len(kept) != 1 || kept[0].Path != "b" {
		t.Errorf("kept = %+v, want newest file b", kept)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %d files, want 2", len(removed))
	}
}

func TestDedupGroupPruneSkipsWhenUnderKeepMax(t *testing.T) {
	g := DedupGroup{
		HasNoise: true,
		Files:    []ArtifactFile{{Path: "a"}, {Path: "b"}},
	}
	kept, removed := g.Prune(5)
	if len(kept) != 2 || len(removed) != 0 {
		t.Errorf("expected no pruning under keepMax, got kept=%d removed=%d", len(kept), len(removed))
	}
}

func TestDedupGroupPruneSkipsWhenNoNoiseOrNumericPrefix(t *testing.T) {
	g := DedupGroup{
		HasNoise:           false,
		AllNumericPrefixed: false,
		Files:              []ArtifactFile{{Path: "a"}, {Path: "b"}, {Path: "c"}},
	}
	kept, removed := g.Prune(1)
	if len(kept) != 3 || len(removed) != 0 {
		t.Errorf("expected no pruning without noise or numeric prefixes, got kept=%d removed=%d", len(kept), len(removed))
	}
}
