package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/workspace"
)

// GroupsHandler serves the group and face endpoints.
type GroupsHandler struct {
	ws *workspace.Workspace
}

func NewGroupsHandler(ws *workspace.Workspace) *GroupsHandler {
	return &GroupsHandler{ws: ws}
}

// GroupResponse represents a face group in API responses.
type GroupResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	FaceCount  int      `json:"face_count"`
	MainFaceID string   `json:"main_face_id,omitempty"`
	FaceIDs    []string `json:"face_ids"`
}

func groupToResponse(g *model.Group) GroupResponse {
	faces := g.Faces()
	resp := GroupResponse{
		ID:        g.ID.String(),
		Name:      g.Name,
		FaceCount: len(faces),
		FaceIDs:   make([]string, len(faces)),
	}
	for i, f := range faces {
		resp.FaceIDs[i] = f.ID.String()
	}
	if mf := g.MainFace(); mf != nil {
		resp.MainFaceID = mf.ID.String()
	}
	return resp
}

func (h *GroupsHandler) listGroups(w http.ResponseWriter, status int) {
	var response []GroupResponse
	err := h.ws.View(func(p *model.Project) {
		groups := p.Groups()
		response = make([]GroupResponse, len(groups))
		for i, g := range groups {
			response[i] = groupToResponse(g)
		}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "workspace is closed")
		return
	}
	// largest group first
	sort.SliceStable(response, func(i, j int) bool {
		return response[i].FaceCount > response[j].FaceCount
	})
	respondJSON(w, status, response)
}

// List returns all groups, largest first.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.listGroups(w, http.StatusOK)
}

// Recalculate discards the current grouping and re-clusters every face,
// then returns the fresh groups.
func (h *GroupsHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.RecalculateGroups(); err != nil {
		respondOpError(w, err)
		return
	}
	h.listGroups(w, http.StatusOK)
}

// DeleteAll removes every group, leaving faces ungrouped.
func (h *GroupsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.DeleteAllGroups(); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupRenameRequest is the request body for renaming a group.
type GroupRenameRequest struct {
	Name string `json:"name"`
}

// Rename assigns a user-visible name to a group.
func (h *GroupsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req GroupRenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.ws.RenameGroup(id, req.Name); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MainFaceRequest is the request body for pinning a group's representative
// face. A null face_id clears the pin.
type MainFaceRequest struct {
	FaceID *string `json:"face_id"`
}

// SetMainFace pins or clears a group's representative face.
func (h *GroupsHandler) SetMainFace(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req MainFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var faceID *uuid.UUID
	if req.FaceID != nil {
		parsed, err := uuid.Parse(*req.FaceID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid face_id")
			return
		}
		faceID = &parsed
	}

	if err := h.ws.SetMainFaceOverride(id, faceID); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CombineRequest is the request body for merging two groups directly.
type CombineRequest struct {
	DestinationID string `json:"destination_id"`
	SourceID      string `json:"source_id"`
}

// Combine merges the source group into the destination group.
func (h *GroupsHandler) Combine(w http.ResponseWriter, r *http.Request) {
	var req CombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	dstID, err := uuid.Parse(req.DestinationID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid destination_id")
		return
	}
	srcID, err := uuid.Parse(req.SourceID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid source_id")
		return
	}

	if err := h.ws.CombineGroups(dstID, srcID); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveFaceRequest is the request body for reassigning a face to a group.
type MoveFaceRequest struct {
	GroupID string `json:"group_id"`
}

// MoveFace reassigns a face to another group.
func (h *GroupsHandler) MoveFace(w http.ResponseWriter, r *http.Request) {
	faceID, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req MoveFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid group_id")
		return
	}

	if err := h.ws.MoveFaceToGroup(faceID, groupID); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFaceFromGroup detaches a face from its group.
func (h *GroupsHandler) RemoveFaceFromGroup(w http.ResponseWriter, r *http.Request) {
	faceID, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.ws.RemoveFaceFromGroup(faceID); err != nil {
		respondOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SimilarFaceResponse pairs a face with its distance to the query face.
type SimilarFaceResponse struct {
	Face     FaceResponse `json:"face"`
	Distance float64      `json:"distance"`
}

// SimilarFaces returns the faces nearest to the given face in embedding
// space, excluding the face itself. The count defaults to 10.
func (h *GroupsHandler) SimilarFaces(w http.ResponseWriter, r *http.Request) {
	faceID, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	k, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if k <= 0 {
		k = 10
	}

	var embedding []float32
	found := false
	err := h.ws.View(func(p *model.Project) {
		if f, ok := p.FaceByID(faceID); ok {
			found = true
			embedding = f.Embedding
		}
	})
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "workspace is closed")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "face "+faceID.String()+" not in project")
		return
	}

	// over-fetch by one because the face itself is its own nearest neighbor
	faces, distances, err := h.ws.SimilarFaces(embedding, k+1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}

	response := make([]SimilarFaceResponse, 0, k)
	for i, f := range faces {
		if f.ID == faceID {
			continue
		}
		response = append(response, SimilarFaceResponse{Face: faceToResponse(f), Distance: distances[i]})
		if len(response) == k {
			break
		}
	}
	respondJSON(w, http.StatusOK, response)
}
