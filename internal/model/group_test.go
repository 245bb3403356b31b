package model

import (
	"testing"
)

func makeFace(t *testing.T, img *Image, confidence float64, embedding ...float32) *Face {
	t.Helper()
	f := NewFace(Rect{X: 10, Y: 10, Width: 50, Height: 50}, confidence, embedding)
	if img != nil {
		if err := img.AddFace(f); err != nil {
			t.Fatalf("failed to attach face to image: %v", err)
		}
	}
	return f
}

func TestGroupCentroid(t *testing.T) {
	g := NewGroup()

	if g.Centroid() != nil {
		t.Error("expected nil centroid for empty group")
	}

	f1 := makeFace(t, nil, 0.9, 1, 2, 3)
	if err := g.AddFace(f1); err != nil {
		t.Fatalf("failed to add face: %v", err)
	}

	c := g.Centroid()
	if len(c) != 3 || c[0] != 1 || c[1] != 2 || c[2] != 3 {
		t.Errorf("singleton centroid should equal the face embedding, got %v", c)
	}

	f2 := makeFace(t, nil, 0.8, 3, 4, 5)
	if err := g.AddFace(f2); err != nil {
		t.Fatalf("failed to add face: %v", err)
	}

	c = g.Centroid()
	if c[0] != 2 || c[1] != 3 || c[2] != 4 {
		t.Errorf("expected centroid [2 3 4], got %v", c)
	}
}

func TestGroupCentroidInvalidatedOnRemove(t *testing.T) {
	g := NewGroup()
	f1 := makeFace(t, nil, 0.9, 0, 0)
	f2 := makeFace(t, nil, 0.8, 2, 2)
	if err := g.AddFace(f1); err != nil {
		t.Fatalf("failed to add face: %v", err)
	}
	if err := g.AddFace(f2); err != nil {
		t.Fatalf("failed to add face: %v", err)
	}

	if c := g.Centroid(); c[0] != 1 {
		t.Fatalf("expected centroid [1 1], got %v", c)
	}

	if err := g.RemoveFace(f2); err != nil {
		t.Fatalf("failed to remove face: %v", err)
	}
	if c := g.Centroid(); c[0] != 0 {
		t.Errorf("expected centroid [0 0] after removal, got %v", c)
	}

	if err := g.RemoveFace(f1); err != nil {
		t.Fatalf("failed to remove face: %v", err)
	}
	if g.Centroid() != nil {
		t.Error("expected nil centroid for emptied group")
	}
}

func TestGroupFaceBelongsToAtMostOneGroup(t *testing.T) {
	g1 := NewGroup()
	g2 := NewGroup()
	f := makeFace(t, nil, 0.9, 1, 1)

	if err := g1.AddFace(f); err != nil {
		t.Fatalf("failed to add face: %v", err)
	}
	if f.Group() != g1 {
		t.Error("face group back-reference not set")
	}

	if err := g2.AddFace(f); err == nil {
		t.Error("expected error when adding an already-grouped face")
	}
	if err := g1.AddFace(f); err == nil {
		t.Error("expected error when re-adding a face to its own group")
	}
}

func TestGroupMainFace(t *testing.T) {
	g := NewGroup()
	low := makeFace(t, nil, 0.5, 1, 1)
	high := makeFace(t, nil, 0.95, 2, 2)
	for _, f := range []*Face{low, high} {
		if err := g.AddFace(f); err != nil {
			t.Fatalf("failed to add face: %v", err)
		}
	}

	if g.MainFace() != high {
		t.Error("expected highest-confidence face as main face")
	}

	if err := g.SetMainFaceOverride(low); err != nil {
		t.Fatalf("failed to set override: %v", err)
	}
	if g.MainFace() != low {
		t.Error("expected override face as main face")
	}

	// removing the pinned face clears the override
	if err := g.RemoveFace(low); err != nil {
		t.Fatalf("failed to remove face: %v", err)
	}
	if g.MainFaceOverride() != nil {
		t.Error("expected override cleared after removing the pinned face")
	}
	if g.MainFace() != high {
		t.Error("expected fallback to highest-confidence face")
	}
}

func TestGroupSetMainFaceOverrideRejectsNonMember(t *testing.T) {
	g := NewGroup()
	outsider := makeFace(t, nil, 0.9, 1, 1)
	if err := g.SetMainFaceOverride(outsider); err == nil {
		t.Error("expected error when pinning a non-member face")
	}
}

func TestGroupImageCount(t *testing.T) {
	imgA := NewImage("/photos/a.jpg")
	imgB := NewImage("/photos/b.jpg")

	g := NewGroup()
	for _, f := range []*Face{
		makeFace(t, imgA, 0.9, 1, 1),
		makeFace(t, imgA, 0.8, 1, 2),
		makeFace(t, imgB, 0.7, 2, 1),
	} {
		if err := g.AddFace(f); err != nil {
			t.Fatalf("failed to add face: %v", err)
		}
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 faces, got %d", g.Size())
	}
	if g.ImageCount() != 2 {
		t.Errorf("expected 2 distinct images, got %d", g.ImageCount())
	}
}
