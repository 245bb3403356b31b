package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Image is an imported photograph. The core never loads pixel data itself;
// Path points at the file owned by the importer.
type Image struct {
	ID   uuid.UUID
	Path string

	faces     []*Face
	processed bool
}

func NewImage(path string) *Image {
	return &Image{
		ID:   uuid.New(),
		Path: path,
	}
}

// Faces returns the faces detected in this image, in detection order.
func (img *Image) Faces() []*Face {
	out := make([]*Face, len(img.faces))
	copy(out, img.faces)
	return out
}

// AddFace attaches a face to this image. A face belongs to exactly one image.
func (img *Image) AddFace(f *Face) error {
	if f.image != nil {
		return fmt.Errorf("face %s already belongs to image %s", f.ID, f.image.ID)
	}
	f.image = img
	img.faces = append(img.faces, f)
	return nil
}

// Processed reports whether feature extraction has completed for this image.
func (img *Image) Processed() bool {
	return img.processed
}

// MarkProcessed flips the processed flag. It flips at most once; later calls
// are no-ops so re-submitting a processed image stays idempotent.
func (img *Image) MarkProcessed() {
	img.processed = true
}
