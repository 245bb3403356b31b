// Package projectfile reads and writes the on-disk project format. The core
// model performs no I/O itself; this package serializes plain value data and
// reconstructs state through the same aggregate mutators used live, so the
// membership invariants hold identically after a load.
package projectfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
)

// FormatVersion is bumped on incompatible changes to the file layout.
const FormatVersion = 1

type faceRecord struct {
	ID         uuid.UUID  `json:"id"`
	Box        model.Rect `json:"box"`
	Confidence float64    `json:"confidence"`
	Embedding  []float32  `json:"embedding"`
}

type imageRecord struct {
	ID        uuid.UUID    `json:"id"`
	Path      string       `json:"path"`
	Processed bool         `json:"processed"`
	Faces     []faceRecord `json:"faces"`
}

type groupRecord struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name,omitempty"`
	FaceIDs       []uuid.UUID `json:"face_ids"`
	MainFaceID    *uuid.UUID  `json:"main_face_id,omitempty"`
	DontMergeWith []uuid.UUID `json:"dont_merge_with,omitempty"`
}

type projectRecord struct {
	Version int           `json:"version"`
	Images  []imageRecord `json:"images"`
	Groups  []groupRecord `json:"groups"`
}

// Write serializes the project as JSON.
func Write(w io.Writer, p *model.Project) error {
	rec := projectRecord{Version: FormatVersion}

	for _, img := range p.Images() {
		ir := imageRecord{
			ID:        img.ID,
			Path:      img.Path,
			Processed: img.Processed(),
		}
		for _, f := range img.Faces() {
			ir.Faces = append(ir.Faces, faceRecord{
				ID:         f.ID,
				Box:        f.Box,
				Confidence: f.Confidence,
				Embedding:  f.Embedding,
			})
		}
		rec.Images = append(rec.Images, ir)
	}

	for _, g := range p.Groups() {
		gr := groupRecord{
			ID:            g.ID,
			Name:          g.Name,
			DontMergeWith: g.ExcludedGroupIDs(),
		}
		for _, f := range g.Faces() {
			gr.FaceIDs = append(gr.FaceIDs, f.ID)
		}
		if override := g.MainFaceOverride(); override != nil {
			id := override.ID
			gr.MainFaceID = &id
		}
		rec.Groups = append(rec.Groups, gr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return nil
}

// Read deserializes a project, rebuilding it through the aggregate mutators.
func Read(r io.Reader) (*model.Project, error) {
	var rec projectRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	if rec.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported project file version %d", rec.Version)
	}

	p := model.NewProject()
	faces := make(map[uuid.UUID]*model.Face)

	for _, ir := range rec.Images {
		img := model.NewImage(ir.Path)
		img.ID = ir.ID
		if ir.Processed {
			img.MarkProcessed()
		}
		for _, fr := range ir.Faces {
			f := model.NewFace(fr.Box, fr.Confidence, fr.Embedding)
			f.ID = fr.ID
			if err := img.AddFace(f); err != nil {
				return nil, fmt.Errorf("image %s: %w", ir.ID, err)
			}
			if _, dup := faces[f.ID]; dup {
				return nil, fmt.Errorf("duplicate face id %s", f.ID)
			}
			faces[f.ID] = f
		}
		if err := p.AddImage(img); err != nil {
			return nil, err
		}
	}

	for _, gr := range rec.Groups {
		g := model.NewGroup()
		g.ID = gr.ID
		g.Name = gr.Name
		for _, id := range gr.FaceIDs {
			f, ok := faces[id]
			if !ok {
				return nil, fmt.Errorf("group %s references unknown face %s", gr.ID, id)
			}
			if err := g.AddFace(f); err != nil {
				return nil, fmt.Errorf("group %s: %w", gr.ID, err)
			}
		}
		if gr.MainFaceID != nil {
			f, ok := faces[*gr.MainFaceID]
			if !ok {
				return nil, fmt.Errorf("group %s pins unknown face %s", gr.ID, *gr.MainFaceID)
			}
			if err := g.SetMainFaceOverride(f); err != nil {
				return nil, fmt.Errorf("group %s: %w", gr.ID, err)
			}
		}
		if err := p.AddGroup(g); err != nil {
			return nil, err
		}
	}

	// exclusions are restored after all groups exist; the relation is
	// symmetric so each stored direction re-establishes both
	for _, gr := range rec.Groups {
		for _, otherID := range gr.DontMergeWith {
			if _, ok := p.Group(otherID); !ok {
				// a stale entry for a group deleted before saving
				continue
			}
			if err := p.ExcludeMerge(gr.ID, otherID); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

// WriteFile saves the project to path.
func WriteFile(path string, p *model.Project) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create project file: %w", err)
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a project from path.
func ReadFile(path string) (*model.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
