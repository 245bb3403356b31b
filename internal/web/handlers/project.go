package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/phantomlab/facetriage/internal/workspace"
)

// ProjectHandler serves project-level endpoints.
type ProjectHandler struct {
	ws *workspace.Workspace
}

func NewProjectHandler(ws *workspace.Workspace) *ProjectHandler {
	return &ProjectHandler{ws: ws}
}

// ProgressResponse reports how far the current import batch has come.
type ProgressResponse struct {
	Done  int  `json:"done"`
	Total int  `json:"total"`
	Dirty bool `json:"dirty"`
}

// Progress returns the import batch progress and the dirty flag.
func (h *ProjectHandler) Progress(w http.ResponseWriter, r *http.Request) {
	done, total := h.ws.Progress()
	respondJSON(w, http.StatusOK, ProgressResponse{
		Done:  done,
		Total: total,
		Dirty: h.ws.Dirty(),
	})
}

// SaveRequest is the request body for saving the project file.
type SaveRequest struct {
	Path string `json:"path"`
}

// Save writes the project file to the given path.
func (h *ProjectHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.ws.SaveProject(req.Path); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
