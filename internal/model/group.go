package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Group is a set of faces believed to belong to the same person.
// A face is never shared between two groups.
type Group struct {
	ID   uuid.UUID
	Name string

	faces            []*Face
	centroid         []float32 // cached mean embedding, nil when stale or empty
	mainFaceOverride *Face
	dontMergeWith    map[uuid.UUID]struct{}
}

func NewGroup() *Group {
	return &Group{
		ID:            uuid.New(),
		dontMergeWith: make(map[uuid.UUID]struct{}),
	}
}

// Faces returns the member faces in insertion order.
func (g *Group) Faces() []*Face {
	out := make([]*Face, len(g.faces))
	copy(out, g.faces)
	return out
}

func (g *Group) Size() int {
	return len(g.faces)
}

// ImageCount returns the number of distinct images contributing faces.
func (g *Group) ImageCount() int {
	seen := make(map[uuid.UUID]struct{}, len(g.faces))
	for _, f := range g.faces {
		if f.image != nil {
			seen[f.image.ID] = struct{}{}
		}
	}
	return len(seen)
}

// AddFace adds a face to the group. Adding a face that already belongs to a
// group (this one included) is an invariant violation and returns an error.
func (g *Group) AddFace(f *Face) error {
	if f.group != nil {
		return fmt.Errorf("face %s already belongs to group %s", f.ID, f.group.ID)
	}
	f.group = g
	g.faces = append(g.faces, f)
	g.centroid = nil
	return nil
}

// RemoveFace detaches a face from the group. Removing the face pinned as the
// main-face override clears the override.
func (g *Group) RemoveFace(f *Face) error {
	for i, member := range g.faces {
		if member != f {
			continue
		}
		g.faces = append(g.faces[:i], g.faces[i+1:]...)
		f.group = nil
		if g.mainFaceOverride == f {
			g.mainFaceOverride = nil
		}
		g.centroid = nil
		return nil
	}
	return fmt.Errorf("face %s is not a member of group %s", f.ID, g.ID)
}

// Centroid returns the mean embedding of the member faces, computing and
// caching it when stale. It is nil exactly when the group is empty.
func (g *Group) Centroid() []float32 {
	if g.centroid != nil || len(g.faces) == 0 {
		return g.centroid
	}
	if len(g.faces) == 1 {
		g.centroid = append([]float32(nil), g.faces[0].Embedding...)
		return g.centroid
	}
	dim := len(g.faces[0].Embedding)
	sum := make([]float64, dim)
	for _, f := range g.faces {
		for i, v := range f.Embedding {
			sum[i] += float64(v)
		}
	}
	centroid := make([]float32, dim)
	n := float64(len(g.faces))
	for i, v := range sum {
		centroid[i] = float32(v / n)
	}
	g.centroid = centroid
	return g.centroid
}

// MainFace returns the pinned override when set, otherwise the member face
// with the highest detection confidence. Nil for an empty group.
func (g *Group) MainFace() *Face {
	if g.mainFaceOverride != nil {
		return g.mainFaceOverride
	}
	var best *Face
	for _, f := range g.faces {
		if best == nil || f.Confidence > best.Confidence {
			best = f
		}
	}
	return best
}

func (g *Group) MainFaceOverride() *Face {
	return g.mainFaceOverride
}

// SetMainFaceOverride pins a member face as the group's representative.
// Passing nil clears the override.
func (g *Group) SetMainFaceOverride(f *Face) error {
	if f == nil {
		g.mainFaceOverride = nil
		return nil
	}
	if f.group != g {
		return fmt.Errorf("face %s is not a member of group %s", f.ID, g.ID)
	}
	g.mainFaceOverride = f
	return nil
}

// ExcludesMerge reports whether auto-merging with the other group has been
// permanently rejected.
func (g *Group) ExcludesMerge(other *Group) bool {
	_, ok := g.dontMergeWith[other.ID]
	return ok
}

// ExcludedGroupIDs returns the ids this group must never be auto-merged with.
func (g *Group) ExcludedGroupIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(g.dontMergeWith))
	for id := range g.dontMergeWith {
		out = append(out, id)
	}
	return out
}

func (g *Group) addMergeExclusion(id uuid.UUID) {
	g.dontMergeWith[id] = struct{}{}
}

func (g *Group) removeMergeExclusion(id uuid.UUID) {
	delete(g.dontMergeWith, id)
}

// absorb moves every face of src into g and copies the name and main-face
// override when g has none. Used by Project.CombineGroups only.
func (g *Group) absorb(src *Group) {
	faces := src.Faces()
	for _, f := range faces {
		// detach without clearing src's override yet, we may inherit it
		f.group = nil
	}
	src.faces = nil
	src.centroid = nil
	g.faces = append(g.faces, faces...)
	g.centroid = nil
	if g.Name == "" {
		g.Name = src.Name
	}
	if g.mainFaceOverride == nil {
		g.mainFaceOverride = src.mainFaceOverride
	}
	src.mainFaceOverride = nil
	for _, f := range faces {
		f.group = g
	}
}
