package faceindex

import (
	"path/filepath"
	"testing"

	"github.com/phantomlab/facetriage/internal/model"
)

func face(t *testing.T, embedding ...float32) *model.Face {
	t.Helper()
	return model.NewFace(model.Rect{X: 0, Y: 0, Width: 10, Height: 10}, 0.9, embedding)
}

func TestIndexSearchFindsSelf(t *testing.T) {
	idx := New()
	f1 := face(t, 0.1, 0.1, 0.1)
	f2 := face(t, 0.9, 0.9, 0.9)
	idx.Build([]*model.Face{f1, f2})

	faces, distances, err := idx.Search(f1.Embedding, 1)
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(faces) != 1 || faces[0] != f1 {
		t.Error("expected a just-indexed face to be its own nearest neighbor")
	}
	if distances[0] != 0 {
		t.Errorf("expected zero distance to itself, got %f", distances[0])
	}
}

func TestIndexAddIncremental(t *testing.T) {
	idx := New()
	f1 := face(t, 0, 0)
	idx.Add(f1)
	f2 := face(t, 1, 1)
	idx.Add(f2)

	if idx.Count() != 2 {
		t.Errorf("expected 2 indexed faces, got %d", idx.Count())
	}

	faces, _, err := idx.Search([]float32{0.9, 0.9}, 1)
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(faces) != 1 || faces[0] != f2 {
		t.Error("expected the nearest face")
	}
}

func TestIndexRemoveFiltersResults(t *testing.T) {
	idx := New()
	f1 := face(t, 0, 0)
	f2 := face(t, 0.1, 0)
	idx.Build([]*model.Face{f1, f2})

	idx.Remove(f1.ID)

	faces, _, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	for _, f := range faces {
		if f == f1 {
			t.Error("removed face returned from search")
		}
	}
	if idx.Count() != 1 {
		t.Errorf("expected 1 searchable face, got %d", idx.Count())
	}
}

func TestIndexSearchUninitialized(t *testing.T) {
	idx := New()
	if _, _, err := idx.Search([]float32{1}, 1); err == nil {
		t.Error("expected error for uninitialized index")
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faces.hnsw")

	f1 := face(t, 0.1, 0.2)
	f2 := face(t, 0.8, 0.9)
	idx := New()
	idx.Build([]*model.Face{f1, f2})
	if err := idx.Save(path); err != nil {
		t.Fatalf("failed to save index: %v", err)
	}

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("failed to load metadata: %v", err)
	}
	if meta.FaceCount != 2 {
		t.Errorf("expected face count 2 in metadata, got %d", meta.FaceCount)
	}

	loaded := New()
	if err := loaded.Load(path, []*model.Face{f1, f2}); err != nil {
		t.Fatalf("failed to load index: %v", err)
	}
	faces, _, err := loaded.Search(f2.Embedding, 1)
	if err != nil {
		t.Fatalf("failed to search loaded index: %v", err)
	}
	if len(faces) != 1 || faces[0] != f2 {
		t.Error("loaded index did not find the expected face")
	}
}
