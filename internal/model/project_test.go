package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func newGroupWithFaces(t *testing.T, p *Project, faces ...*Face) *Group {
	t.Helper()
	g := NewGroup()
	for _, f := range faces {
		if err := g.AddFace(f); err != nil {
			t.Fatalf("failed to add face: %v", err)
		}
	}
	if err := p.AddGroup(g); err != nil {
		t.Fatalf("failed to add group: %v", err)
	}
	return g
}

func TestProjectCombineGroups(t *testing.T) {
	p := NewProject()
	a := newGroupWithFaces(t, p,
		makeFace(t, nil, 0.9, 1, 1),
		makeFace(t, nil, 0.8, 1, 2),
		makeFace(t, nil, 0.7, 2, 1),
	)
	b := newGroupWithFaces(t, p,
		makeFace(t, nil, 0.6, 5, 5),
		makeFace(t, nil, 0.5, 5, 6),
	)
	b.Name = "suspect"

	if err := p.CombineGroups(a.ID, b.ID); err != nil {
		t.Fatalf("failed to combine groups: %v", err)
	}

	if a.Size() != 5 {
		t.Errorf("expected merged group with 5 faces, got %d", a.Size())
	}
	if _, ok := p.Group(b.ID); ok {
		t.Error("source group id must no longer exist in the project")
	}
	for _, f := range a.Faces() {
		if f.Group() != a {
			t.Error("face back-reference does not point at the merged group")
		}
	}
	if a.Name != "suspect" {
		t.Errorf("expected merged group to inherit name, got %q", a.Name)
	}
	if a.Centroid() == nil {
		t.Error("expected centroid recomputed from the union")
	}
}

func TestProjectCombineGroupsSelfMerge(t *testing.T) {
	p := NewProject()
	a := newGroupWithFaces(t, p, makeFace(t, nil, 0.9, 1, 1))
	if err := p.CombineGroups(a.ID, a.ID); err == nil {
		t.Error("expected error when merging a group with itself")
	}
}

func TestProjectCombineGroupsClearsExclusions(t *testing.T) {
	p := NewProject()
	a := newGroupWithFaces(t, p, makeFace(t, nil, 0.9, 1, 1))
	b := newGroupWithFaces(t, p, makeFace(t, nil, 0.8, 5, 5))
	c := newGroupWithFaces(t, p, makeFace(t, nil, 0.7, 9, 9))

	if err := p.ExcludeMerge(b.ID, c.ID); err != nil {
		t.Fatalf("failed to exclude merge: %v", err)
	}
	if !b.ExcludesMerge(c) || !c.ExcludesMerge(b) {
		t.Fatal("expected symmetric exclusion")
	}

	if err := p.CombineGroups(a.ID, b.ID); err != nil {
		t.Fatalf("failed to combine groups: %v", err)
	}
	if len(c.ExcludedGroupIDs()) != 0 {
		t.Error("expected exclusions referencing the deleted group to be dropped")
	}
}

func TestProjectRemoveImageDetachesFaces(t *testing.T) {
	p := NewProject()
	img := NewImage("/photos/a.jpg")
	if err := p.AddImage(img); err != nil {
		t.Fatalf("failed to add image: %v", err)
	}
	f1 := makeFace(t, img, 0.9, 1, 1)
	f2 := makeFace(t, img, 0.8, 1, 2)
	g := newGroupWithFaces(t, p, f1, f2)

	if err := p.RemoveImage(img.ID); err != nil {
		t.Fatalf("failed to remove image: %v", err)
	}

	if g.Size() != 0 {
		t.Errorf("expected group emptied by cascade, got %d faces", g.Size())
	}
	if f1.Group() != nil || f2.Group() != nil {
		t.Error("expected faces detached from group")
	}
	if _, ok := p.Image(img.ID); ok {
		t.Error("image still present after removal")
	}
}

func TestProjectMoveFaceToGroup(t *testing.T) {
	p := NewProject()
	f := makeFace(t, nil, 0.9, 1, 1)
	src := newGroupWithFaces(t, p, f)
	dst := newGroupWithFaces(t, p, makeFace(t, nil, 0.8, 2, 2))

	if err := p.MoveFaceToGroup(f, dst); err != nil {
		t.Fatalf("failed to move face: %v", err)
	}
	if src.Size() != 0 || dst.Size() != 2 {
		t.Errorf("expected 0/2 faces after move, got %d/%d", src.Size(), dst.Size())
	}
	if f.Group() != dst {
		t.Error("face back-reference does not point at the destination group")
	}

	// moving to the current group is a no-op
	if err := p.MoveFaceToGroup(f, dst); err != nil {
		t.Errorf("move to own group should be a no-op, got %v", err)
	}
}

func TestProjectGroupByName(t *testing.T) {
	p := NewProject()
	g := newGroupWithFaces(t, p, makeFace(t, nil, 0.9, 1, 1))
	g.Name = "Jiří Novák"

	found, ok := p.GroupByName("jiri  novak")
	if !ok {
		t.Fatal("expected normalized name lookup to find the group")
	}
	if found != g {
		t.Error("lookup returned the wrong group")
	}

	if _, ok := p.GroupByName("someone else"); ok {
		t.Error("expected no match for unknown name")
	}
}

func TestProjectRemoveAllGroups(t *testing.T) {
	p := NewProject()
	f1 := makeFace(t, nil, 0.9, 1, 1)
	f2 := makeFace(t, nil, 0.8, 5, 5)
	newGroupWithFaces(t, p, f1)
	newGroupWithFaces(t, p, f2)

	p.RemoveAllGroups()

	if len(p.Groups()) != 0 {
		t.Errorf("expected no groups, got %d", len(p.Groups()))
	}
	if f1.Group() != nil || f2.Group() != nil {
		t.Error("expected all faces ungrouped")
	}
}

func TestProjectUnknownIDErrorsAreTyped(t *testing.T) {
	p := NewProject()
	unknown := uuid.New()

	if err := p.RemoveImage(unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveImage: expected ErrNotFound, got %v", err)
	}
	if err := p.RenameGroup(unknown, "Alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RenameGroup: expected ErrNotFound, got %v", err)
	}
	if err := p.CombineGroups(unknown, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("CombineGroups: expected ErrNotFound, got %v", err)
	}
	if err := p.ExcludeMerge(unknown, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("ExcludeMerge: expected ErrNotFound, got %v", err)
	}
}
