package faceindex

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/coder/hnsw"

	"github.com/phantomlab/facetriage/internal/model"
)

const metadataVersion = 1

// Metadata is a sidecar for detecting a stale on-disk index.
type Metadata struct {
	FaceCount int       `json:"face_count"`
	BuildTime time.Time `json:"build_time"`
	Version   int       `json:"version"`
}

// Save exports the graph to path and writes a .meta sidecar. An empty index
// removes any previous files instead.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil && idx.saved == nil {
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	if idx.saved != nil {
		err = idx.saved.Export(f)
	} else {
		err = idx.graph.Export(f)
	}
	if err != nil {
		return fmt.Errorf("failed to export graph: %w", err)
	}

	meta := Metadata{
		FaceCount: len(idx.faces),
		BuildTime: time.Now(),
		Version:   metadataVersion,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadMetadata reads the .meta sidecar written by Save.
func LoadMetadata(path string) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(path + ".meta")
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return meta, nil
}

// Load reads a previously saved graph and rebuilds the face lookup from the
// live project faces. Faces absent from the given slice are filtered out of
// search results even if present in the stored graph.
func (idx *Index) Load(path string, faces []*model.Face) error {
	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph = nil
	idx.saved = saved
	idx.faces = make(map[string]*model.Face, len(faces))
	for _, f := range faces {
		idx.faces[f.ID.String()] = f
	}
	return nil
}
