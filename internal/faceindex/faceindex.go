// Package faceindex maintains an approximate-nearest-neighbor index over
// face embeddings for similar-face search across a project.
package faceindex

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/clustering"
	"github.com/phantomlab/facetriage/internal/model"
)

// maxNeighbors is the HNSW M parameter.
const maxNeighbors = 16

// Index wraps an HNSW graph keyed by face id. Safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	saved *hnsw.SavedGraph[string]
	faces map[string]*model.Face
}

func New() *Index {
	return &Index{
		faces: make(map[string]*model.Face),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given faces.
func (idx *Index) Build(faces []*model.Face) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.saved = nil
	idx.faces = make(map[string]*model.Face, len(faces))
	if len(faces) == 0 {
		idx.graph = nil
		return
	}

	g := newGraph()
	for _, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(f.ID.String(), f.Embedding))
		idx.faces[f.ID.String()] = f
	}
	idx.graph = g
}

// Add indexes a single face.
func (idx *Index) Add(f *model.Face) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(f.Embedding) == 0 {
		return
	}
	node := hnsw.MakeNode(f.ID.String(), f.Embedding)
	if idx.saved != nil {
		// keep a loaded graph growing instead of starting a second one
		idx.saved.Add(node)
	} else {
		if idx.graph == nil {
			idx.graph = newGraph()
		}
		idx.graph.Add(node)
	}
	idx.faces[f.ID.String()] = f
}

// Remove drops a face from search results. HNSW does not support true
// deletion; the node stays in the graph but is filtered out on lookup.
func (idx *Index) Remove(id uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.faces, id.String())
}

// Count returns the number of searchable faces.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.faces)
}

// Search returns up to k faces nearest to the query embedding, with their
// Euclidean distances, closest first.
func (idx *Index) Search(query []float32, k int) ([]*model.Face, []float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil && idx.saved == nil {
		return nil, nil, errors.New("index not initialized")
	}

	// over-fetch to compensate for removed faces still present in the graph
	var neighbors []hnsw.Node[string]
	if idx.saved != nil {
		neighbors = idx.saved.Search(query, k*2)
	} else {
		neighbors = idx.graph.Search(query, k*2)
	}

	var faces []*model.Face
	var distances []float64
	for _, n := range neighbors {
		f, ok := idx.faces[n.Key]
		if !ok {
			continue
		}
		faces = append(faces, f)
		distances = append(distances, clustering.EuclideanDistance(query, n.Value))
		if len(faces) == k {
			break
		}
	}
	return faces, distances, nil
}
