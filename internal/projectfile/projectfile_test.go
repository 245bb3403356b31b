package projectfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/phantomlab/facetriage/internal/model"
)

func buildProject(t *testing.T) *model.Project {
	t.Helper()
	p := model.NewProject()

	img := model.NewImage("/photos/scene.jpg")
	if err := p.AddImage(img); err != nil {
		t.Fatalf("failed to add image: %v", err)
	}
	img.MarkProcessed()

	f1 := model.NewFace(model.Rect{X: 10, Y: 20, Width: 80, Height: 90}, 0.97, []float32{0.1, 0.2})
	f2 := model.NewFace(model.Rect{X: 200, Y: 40, Width: 70, Height: 85}, 0.88, []float32{0.8, 0.9})
	for _, f := range []*model.Face{f1, f2} {
		if err := img.AddFace(f); err != nil {
			t.Fatalf("failed to attach face: %v", err)
		}
	}

	g1 := model.NewGroup()
	g1.Name = "Jiří"
	if err := g1.AddFace(f1); err != nil {
		t.Fatalf("failed to group face: %v", err)
	}
	g2 := model.NewGroup()
	if err := g2.AddFace(f2); err != nil {
		t.Fatalf("failed to group face: %v", err)
	}
	for _, g := range []*model.Group{g1, g2} {
		if err := p.AddGroup(g); err != nil {
			t.Fatalf("failed to add group: %v", err)
		}
	}
	if err := g1.SetMainFaceOverride(f1); err != nil {
		t.Fatalf("failed to pin main face: %v", err)
	}
	if err := p.ExcludeMerge(g1.ID, g2.ID); err != nil {
		t.Fatalf("failed to exclude merge: %v", err)
	}
	return p
}

func TestRoundTrip(t *testing.T) {
	original := buildProject(t)

	var buf bytes.Buffer
	if err := Write(&buf, original); err != nil {
		t.Fatalf("failed to write project: %v", err)
	}

	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("failed to read project: %v", err)
	}

	if len(loaded.Images()) != 1 {
		t.Fatalf("expected 1 image, got %d", len(loaded.Images()))
	}
	img := loaded.Images()[0]
	if img.Path != "/photos/scene.jpg" || !img.Processed() {
		t.Errorf("image data not restored: path=%q processed=%v", img.Path, img.Processed())
	}
	if len(img.Faces()) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(img.Faces()))
	}

	groups := loaded.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	g1, g2 := groups[0], groups[1]
	if g1.Name != "Jiří" {
		t.Errorf("expected group name restored, got %q", g1.Name)
	}
	if g1.MainFaceOverride() == nil {
		t.Error("expected main face override restored")
	}
	if !g1.ExcludesMerge(g2) || !g2.ExcludesMerge(g1) {
		t.Error("expected symmetric merge exclusion restored")
	}

	// invariants hold after reconstruction
	for _, g := range groups {
		for _, f := range g.Faces() {
			if f.Group() != g {
				t.Error("face back-reference not restored through mutators")
			}
		}
	}
	original0 := original.Groups()[0]
	if g1.ID != original0.ID {
		t.Error("group ids not preserved")
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	_, err := Read(strings.NewReader(`{"version": 99, "images": [], "groups": []}`))
	if err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestReadRejectsFaceInTwoGroups(t *testing.T) {
	p := buildProject(t)
	var buf bytes.Buffer
	if err := Write(&buf, p); err != nil {
		t.Fatalf("failed to write project: %v", err)
	}

	// corrupt the file so both groups claim the first face
	doc := buf.String()
	faceID := p.Groups()[0].Faces()[0].ID.String()
	otherID := p.Groups()[1].Faces()[0].ID.String()
	// the last occurrence of the second face id is in the second group's
	// face_ids list
	i := strings.LastIndex(doc, otherID)
	doc = doc[:i] + faceID + doc[i+len(otherID):]

	if _, err := Read(strings.NewReader(doc)); err == nil {
		t.Error("expected invariant violation reading a face claimed by two groups")
	}
}

func TestReadRejectsUnknownFaceReference(t *testing.T) {
	doc := `{
      "version": 1,
      "images": [],
      "groups": [{"id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "face_ids": ["6ba7b811-9dad-11d1-80b4-00c04fd430c8"]}]
    }`
	if _, err := Read(strings.NewReader(doc)); err == nil {
		t.Error("expected error for group referencing unknown face")
	}
}

func TestFileRoundTrip(t *testing.T) {
	p := buildProject(t)
	path := t.TempDir() + "/case.ftproj"

	if err := WriteFile(path, p); err != nil {
		t.Fatalf("failed to write project file: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read project file: %v", err)
	}
	if len(loaded.Groups()) != 2 {
		t.Errorf("expected 2 groups, got %d", len(loaded.Groups()))
	}
}
