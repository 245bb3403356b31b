package clustering

import (
	"fmt"

	"github.com/phantomlab/facetriage/internal/model"
)

// AssignToBestGroup attaches a newly-extracted face to the nearest existing
// group by centroid distance, without re-running full clustering. When no
// groups exist a new singleton group is created and returned with
// created=true; the caller registers it with the project.
//
// No distance cutoff is applied: the face always joins the globally nearest
// group, however far away. This keeps incremental growth from fragmenting
// the group list.
func AssignToBestGroup(f *model.Face, groups []*model.Group) (best *model.Group, created bool, err error) {
	if f.Group() != nil {
		return nil, false, fmt.Errorf("face %s is already grouped", f.ID)
	}

	var bestDist float64
	for _, g := range groups {
		centroid := g.Centroid()
		if centroid == nil {
			continue
		}
		d := EuclideanDistance(f.Embedding, centroid)
		if best == nil || d < bestDist {
			best = g
			bestDist = d
		}
	}

	if best == nil {
		best = model.NewGroup()
		created = true
	}
	if err := best.AddFace(f); err != nil {
		return nil, false, err
	}
	return best, created, nil
}
