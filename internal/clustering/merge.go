package clustering

import (
	"sort"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
)

// Opportunity is a candidate pair of groups proposed for human-confirmed
// merging. Transient: recomputed on demand, never stored.
type Opportunity struct {
	A        *model.Group
	B        *model.Group
	Distance float64
}

// PairKey identifies an unordered group pair.
type PairKey struct {
	lo, hi uuid.UUID
}

func NewPairKey(a, b uuid.UUID) PairKey {
	if b.String() < a.String() {
		a, b = b, a
	}
	return PairKey{lo: a, hi: b}
}

// FindMergeOpportunities scans all group pairs and proposes those whose
// centroid distance is under MergeCandidateMaxDistance. Pairs where either
// group permanently excludes the other, or which appear in the caller's
// session-scoped ignore set, are skipped. Results are sorted by ascending
// distance and capped at MaxMergeOpportunities.
//
// The scan is O(n²) over groups; practical group counts stay small.
func FindMergeOpportunities(groups []*model.Group, ignored map[PairKey]struct{}) []Opportunity {
	return FindMergeOpportunitiesWithin(groups, ignored, MergeCandidateMaxDistance)
}

// FindMergeOpportunitiesWithin is FindMergeOpportunities with an explicit
// distance threshold.
func FindMergeOpportunitiesWithin(groups []*model.Group, ignored map[PairKey]struct{}, maxDistance float64) []Opportunity {
	var out []Opportunity
	for i := 0; i < len(groups); i++ {
		a := groups[i]
		ca := a.Centroid()
		if ca == nil {
			continue
		}
		for j := i + 1; j < len(groups); j++ {
			b := groups[j]
			cb := b.Centroid()
			if cb == nil {
				continue
			}
			if a.ExcludesMerge(b) || b.ExcludesMerge(a) {
				continue
			}
			if ignored != nil {
				if _, ok := ignored[NewPairKey(a.ID, b.ID)]; ok {
					continue
				}
			}
			d := EuclideanDistance(ca, cb)
			if d < maxDistance {
				out = append(out, Opportunity{A: a, B: b, Distance: d})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance < out[j].Distance
	})
	if len(out) > MaxMergeOpportunities {
		out = out[:MaxMergeOpportunities]
	}
	return out
}
