package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/clustering"
	"github.com/phantomlab/facetriage/internal/workspace"
)

// MergeHandler serves the merge wizard endpoints.
type MergeHandler struct {
	ws *workspace.Workspace
}

func NewMergeHandler(ws *workspace.Workspace) *MergeHandler {
	return &MergeHandler{ws: ws}
}

// OpportunityResponse represents a pair of groups proposed for merging.
type OpportunityResponse struct {
	AID      string  `json:"a_id"`
	AName    string  `json:"a_name,omitempty"`
	BID      string  `json:"b_id"`
	BName    string  `json:"b_name,omitempty"`
	Distance float64 `json:"distance"`
}

func opportunityToResponse(o clustering.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		AID:      o.A.ID.String(),
		AName:    o.A.Name,
		BID:      o.B.ID.String(),
		BName:    o.B.Name,
		Distance: o.Distance,
	}
}

// Candidates starts or reopens the merge session and returns the pairs
// awaiting decisions, closest first.
func (h *MergeHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	opportunities, err := h.ws.FindMergeCandidates()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "workspace is closed")
		return
	}

	response := make([]OpportunityResponse, len(opportunities))
	for i, o := range opportunities {
		response[i] = opportunityToResponse(o)
	}
	respondJSON(w, http.StatusOK, response)
}

// DecisionRequest is the request body for a merge wizard decision.
type DecisionRequest struct {
	AID     string `json:"a_id"`
	BID     string `json:"b_id"`
	Outcome string `json:"outcome"` // merge, reject or skip
}

// Decide applies a decision to the session's current merge opportunity.
func (h *MergeHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	aID, err := uuid.Parse(req.AID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid a_id")
		return
	}
	bID, err := uuid.Parse(req.BID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid b_id")
		return
	}
	outcome, err := workspace.ParseOutcome(req.Outcome)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := h.ws.Decide(aID, bID, outcome); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, workspace.ErrNoMergeSession), errors.Is(err, clustering.ErrNoOpportunity):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workspace.ErrStaleOpportunity):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondOpError(w, err)
	}
}
