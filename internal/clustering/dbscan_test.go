package clustering

import (
	"testing"

	"github.com/phantomlab/facetriage/internal/model"
)

func face(t *testing.T, embedding ...float32) *model.Face {
	t.Helper()
	return model.NewFace(model.Rect{X: 0, Y: 0, Width: 10, Height: 10}, 0.9, embedding)
}

func TestClusterTwoTightClusters(t *testing.T) {
	// two tight clusters ~0.1 apart internally, ~0.9 apart from each other
	faces := []*model.Face{
		face(t, 0.0, 0.0),
		face(t, 0.1, 0.0),
		face(t, 0.0, 0.1),
		face(t, 0.9, 0.9),
		face(t, 0.9, 1.0),
	}

	groups, err := Cluster(faces)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Size() != 3 {
		t.Errorf("expected largest group first with 3 faces, got %d", groups[0].Size())
	}
	if groups[1].Size() != 2 {
		t.Errorf("expected second group with 2 faces, got %d", groups[1].Size())
	}
	for _, g := range groups {
		if g.Centroid() == nil {
			t.Error("expected centroid computed before returning")
		}
	}
}

func TestClusterSingletons(t *testing.T) {
	// min cluster size 1: isolated faces still get their own group
	faces := []*model.Face{
		face(t, 0, 0),
		face(t, 5, 5),
		face(t, 10, 10),
	}

	groups, err := Cluster(faces)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 singleton groups, got %d", len(groups))
	}
	total := 0
	for _, g := range groups {
		total += g.Size()
	}
	if total != len(faces) {
		t.Errorf("expected every face assigned, got %d of %d", total, len(faces))
	}
}

func TestClusterEmpty(t *testing.T) {
	groups, err := Cluster(nil)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups for no faces, got %d", len(groups))
	}
}

func TestClusterChainedNeighborhoods(t *testing.T) {
	// a-b and b-c are within eps, a-c is not; density reachability still
	// puts all three in one group
	faces := []*model.Face{
		face(t, 0.0, 0),
		face(t, 0.4, 0),
		face(t, 0.8, 0),
	}

	groups, err := Cluster(faces)
	if err != nil {
		t.Fatalf("failed to cluster: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 chained group, got %d", len(groups))
	}
	if groups[0].Size() != 3 {
		t.Errorf("expected 3 faces in chained group, got %d", groups[0].Size())
	}
}

func TestClusterPartitionIdempotent(t *testing.T) {
	build := func() []*model.Face {
		return []*model.Face{
			face(t, 0.0, 0.0),
			face(t, 0.1, 0.0),
			face(t, 0.9, 0.9),
			face(t, 5.0, 5.0),
		}
	}

	partition := func(faces []*model.Face) []int {
		groups, err := Cluster(faces)
		if err != nil {
			t.Fatalf("failed to cluster: %v", err)
		}
		var sizes []int
		for _, g := range groups {
			sizes = append(sizes, g.Size())
		}
		return sizes
	}

	first := partition(build())
	second := partition(build())

	if len(first) != len(second) {
		t.Fatalf("partition changed between runs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("group size %d changed between runs: %d vs %d", i, first[i], second[i])
		}
	}
}
