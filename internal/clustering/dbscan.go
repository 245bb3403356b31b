package clustering

import (
	"fmt"
	"sort"

	"github.com/phantomlab/facetriage/internal/model"
)

const (
	// ClusterEpsilon separates same-person from different-person face
	// embeddings under Euclidean distance.
	ClusterEpsilon = 0.425

	// MergeCandidateMaxDistance is the looser centroid threshold for
	// human-reviewed merge proposals.
	MergeCandidateMaxDistance = 0.6

	// MaxMergeOpportunities caps how many candidates a single pass returns.
	MaxMergeOpportunities = 10
)

// Cluster partitions faces into groups with density-based clustering over
// Euclidean embedding distance. Minimum cluster size is 1, so every face
// lands in some group, singletons included. Faces must be ungrouped; a full
// recompute discards the previous grouping before calling this.
//
// Returned groups are sorted by descending member count, ties broken by
// first-seen face order, and each centroid is computed before returning.
func Cluster(faces []*model.Face) ([]*model.Group, error) {
	return ClusterWithEpsilon(faces, ClusterEpsilon)
}

// ClusterWithEpsilon is Cluster with an explicit distance threshold.
func ClusterWithEpsilon(faces []*model.Face, eps float64) ([]*model.Group, error) {
	n := len(faces)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	// min cluster size 1 makes every face a core point, so clusters are the
	// connected components of the eps-neighborhood graph
	clusterCount := 0
	for i := 0; i < n; i++ {
		if labels[i] != -1 {
			continue
		}
		label := clusterCount
		clusterCount++

		queue := []int{i}
		labels[i] = label
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for j := 0; j < n; j++ {
				if labels[j] != -1 {
					continue
				}
				if EuclideanDistance(faces[cur].Embedding, faces[j].Embedding) <= eps {
					labels[j] = label
					queue = append(queue, j)
				}
			}
		}
	}

	members := make([][]*model.Face, clusterCount)
	for i, f := range faces {
		members[labels[i]] = append(members[labels[i]], f)
	}

	// labels are assigned in first-seen order, so a stable sort keeps ties
	// deterministic
	sort.SliceStable(members, func(a, b int) bool {
		return len(members[a]) > len(members[b])
	})

	groups := make([]*model.Group, 0, clusterCount)
	for _, faces := range members {
		g := model.NewGroup()
		for _, f := range faces {
			if err := g.AddFace(f); err != nil {
				return nil, fmt.Errorf("assign face to cluster: %w", err)
			}
		}
		g.Centroid()
		groups = append(groups, g)
	}
	return groups, nil
}
