package model

import (
	"github.com/google/uuid"
)

// Rect is an axis-aligned bounding box in image pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Face is a single detected face: a bounding box, a detection confidence
// and a fixed-length embedding vector used as the identity signature.
// A face is immutable after creation except for its group back-reference,
// which is managed by Group/Project mutators.
type Face struct {
	ID         uuid.UUID
	Box        Rect
	Confidence float64
	Embedding  []float32

	image *Image
	group *Group
}

func NewFace(box Rect, confidence float64, embedding []float32) *Face {
	return &Face{
		ID:         uuid.New(),
		Box:        box,
		Confidence: confidence,
		Embedding:  embedding,
	}
}

// Image returns the owning image, nil if the face is not attached yet.
func (f *Face) Image() *Image {
	return f.image
}

// Group returns the group the face currently belongs to, nil if ungrouped.
func (f *Face) Group() *Group {
	return f.group
}
