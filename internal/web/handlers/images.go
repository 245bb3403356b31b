package handlers

import (
	"io"
	"net/http"

	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/workspace"
)

// maxUploadMemory bounds how much of a multipart upload is held in memory
// before spilling to disk.
const maxUploadMemory = 32 << 20

// ImagesHandler serves the image endpoints.
type ImagesHandler struct {
	ws *workspace.Workspace
}

func NewImagesHandler(ws *workspace.Workspace) *ImagesHandler {
	return &ImagesHandler{ws: ws}
}

// ImageResponse represents an image in API responses.
type ImageResponse struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Processed bool   `json:"processed"`
	FaceCount int    `json:"face_count"`
}

// FaceResponse represents a detected face in API responses.
type FaceResponse struct {
	ID         string     `json:"id"`
	ImageID    string     `json:"image_id"`
	Box        model.Rect `json:"box"`
	Confidence float64    `json:"confidence"`
	GroupID    string     `json:"group_id,omitempty"`
}

func imageToResponse(img *model.Image) ImageResponse {
	return ImageResponse{
		ID:        img.ID.String(),
		Path:      img.Path,
		Processed: img.Processed(),
		FaceCount: len(img.Faces()),
	}
}

func faceToResponse(f *model.Face) FaceResponse {
	resp := FaceResponse{
		ID:         f.ID.String(),
		Box:        f.Box,
		Confidence: f.Confidence,
	}
	if img := f.Image(); img != nil {
		resp.ImageID = img.ID.String()
	}
	if g := f.Group(); g != nil {
		resp.GroupID = g.ID.String()
	}
	return resp
}

// List returns all images in the project.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	var response []ImageResponse
	err := h.ws.View(func(p *model.Project) {
		images := p.Images()
		response = make([]ImageResponse, len(images))
		for i, img := range images {
			response[i] = imageToResponse(img)
		}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "workspace is closed")
		return
	}
	respondJSON(w, http.StatusOK, response)
}

// Upload accepts one or more image files as multipart form data and submits
// them for asynchronous extraction. Responds 202 immediately; results arrive
// via the processed flag on each image.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var response []ImageResponse
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to open uploaded file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read uploaded file "+fh.Filename)
			return
		}

		img, err := h.ws.AddImage(fh.Filename, data)
		if err != nil {
			respondOpError(w, err)
			return
		}
		response = append(response, imageToResponse(img))
	}

	respondJSON(w, http.StatusAccepted, response)
}

// Get returns a single image with its detected faces.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	var response struct {
		ImageResponse
		Faces []FaceResponse `json:"faces"`
	}
	found := false
	err := h.ws.View(func(p *model.Project) {
		img, ok := p.Image(id)
		if !ok {
			return
		}
		found = true
		response.ImageResponse = imageToResponse(img)
		faces := img.Faces()
		response.Faces = make([]FaceResponse, len(faces))
		for i, f := range faces {
			response.Faces[i] = faceToResponse(f)
		}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "workspace is closed")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "image "+id.String()+" not in project")
		return
	}
	respondJSON(w, http.StatusOK, response)
}

// Delete removes an image, cascading its faces out of their groups.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ws.RemoveImage(id); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
