package workspace

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/clustering"
	"github.com/phantomlab/facetriage/internal/model"
	"github.com/phantomlab/facetriage/internal/projectfile"
)

// Outcome is a merge-wizard decision.
type Outcome string

const (
	OutcomeMerge  Outcome = "merge"
	OutcomeReject Outcome = "reject"
	OutcomeSkip   Outcome = "skip"
)

// ParseOutcome validates a decision string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeMerge, OutcomeReject, OutcomeSkip:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("unknown merge outcome %q", s)
}

// ErrNoMergeSession means Decide was called before FindMergeCandidates.
var ErrNoMergeSession = errors.New("no merge session in progress")

// ErrStaleOpportunity means the decided pair is not the session's current
// candidate anymore.
var ErrStaleOpportunity = errors.New("decision does not match the current merge opportunity")

// RemoveImage drops an image, its faces cascading out of their groups and
// the face index.
func (w *Workspace) RemoveImage(id uuid.UUID) error {
	var opErr error
	err := w.do(func() {
		img, ok := w.project.Image(id)
		if !ok {
			opErr = fmt.Errorf("image %s: %w", id, model.ErrNotFound)
			return
		}
		grouped := false
		for _, f := range img.Faces() {
			if f.Group() != nil {
				grouped = true
			}
			w.index.Remove(f.ID)
		}
		if opErr = w.project.RemoveImage(id); opErr != nil {
			return
		}
		w.dirty = true
		w.session = nil
		if grouped {
			w.emit(Notification{Kind: GroupsChanged})
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// RecalculateGroups discards the existing grouping and re-clusters every
// face from scratch. Invoked only on explicit user request.
func (w *Workspace) RecalculateGroups() error {
	var opErr error
	err := w.do(func() {
		faces := w.project.Faces()
		w.project.RemoveAllGroups()
		groups, err := clustering.ClusterWithEpsilon(faces, w.clusterEps)
		if err != nil {
			opErr = fmt.Errorf("recluster: %w", err)
			return
		}
		for _, g := range groups {
			if err := w.project.AddGroup(g); err != nil {
				opErr = err
				return
			}
		}
		w.dirty = true
		w.session = nil
		w.emit(Notification{Kind: GroupsChanged})
	})
	if err != nil {
		return err
	}
	return opErr
}

// DeleteAllGroups removes the grouping entirely, leaving faces ungrouped.
func (w *Workspace) DeleteAllGroups() error {
	return w.do(func() {
		w.project.RemoveAllGroups()
		w.dirty = true
		w.session = nil
		w.emit(Notification{Kind: GroupsChanged})
	})
}

// RenameGroup assigns a user-visible name to a group.
func (w *Workspace) RenameGroup(id uuid.UUID, name string) error {
	var opErr error
	err := w.do(func() {
		if opErr = w.project.RenameGroup(id, name); opErr == nil {
			w.dirty = true
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// SetMainFaceOverride pins a face as a group's representative; a nil faceID
// clears the pin.
func (w *Workspace) SetMainFaceOverride(groupID uuid.UUID, faceID *uuid.UUID) error {
	var opErr error
	err := w.do(func() {
		g, ok := w.project.Group(groupID)
		if !ok {
			opErr = fmt.Errorf("group %s: %w", groupID, model.ErrNotFound)
			return
		}
		var f *model.Face
		if faceID != nil {
			f, ok = w.project.FaceByID(*faceID)
			if !ok {
				opErr = fmt.Errorf("face %s: %w", *faceID, model.ErrNotFound)
				return
			}
		}
		if opErr = g.SetMainFaceOverride(f); opErr == nil {
			w.dirty = true
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// RemoveFaceFromGroup detaches a face from its group.
func (w *Workspace) RemoveFaceFromGroup(faceID uuid.UUID) error {
	var opErr error
	err := w.do(func() {
		f, ok := w.project.FaceByID(faceID)
		if !ok {
			opErr = fmt.Errorf("face %s: %w", faceID, model.ErrNotFound)
			return
		}
		if opErr = w.project.RemoveFaceFromGroup(f); opErr != nil {
			return
		}
		w.dirty = true
		w.session = nil
		w.emit(Notification{Kind: GroupsChanged})
	})
	if err != nil {
		return err
	}
	return opErr
}

// MoveFaceToGroup reassigns a face to another group.
func (w *Workspace) MoveFaceToGroup(faceID, groupID uuid.UUID) error {
	var opErr error
	err := w.do(func() {
		f, ok := w.project.FaceByID(faceID)
		if !ok {
			opErr = fmt.Errorf("face %s: %w", faceID, model.ErrNotFound)
			return
		}
		g, ok := w.project.Group(groupID)
		if !ok {
			opErr = fmt.Errorf("group %s: %w", groupID, model.ErrNotFound)
			return
		}
		if opErr = w.project.MoveFaceToGroup(f, g); opErr != nil {
			return
		}
		w.dirty = true
		w.session = nil
		w.emit(Notification{Kind: GroupsChanged})
	})
	if err != nil {
		return err
	}
	return opErr
}

// CombineGroups merges src into dst directly, outside the merge wizard.
func (w *Workspace) CombineGroups(dstID, srcID uuid.UUID) error {
	var opErr error
	err := w.do(func() {
		if opErr = w.project.CombineGroups(dstID, srcID); opErr != nil {
			return
		}
		w.dirty = true
		w.session = nil
		w.emit(Notification{Kind: GroupsChanged})
	})
	if err != nil {
		return err
	}
	return opErr
}

// FindMergeCandidates starts a merge session, or reopens the existing one to
// pick up opportunities created by earlier merges, and returns the
// candidates awaiting decisions.
func (w *Workspace) FindMergeCandidates() ([]clustering.Opportunity, error) {
	var out []clustering.Opportunity
	err := w.do(func() {
		if w.session == nil {
			w.session = clustering.NewMergeSessionWithin(w.project, w.mergeWithin)
		} else {
			w.session.Reopen()
		}
		out = w.session.Opportunities()
	})
	return out, err
}

// Decide applies a wizard outcome to the current merge opportunity. The
// given pair must match the session's current candidate in either order.
func (w *Workspace) Decide(aID, bID uuid.UUID, outcome Outcome) error {
	var opErr error
	err := w.do(func() {
		if w.session == nil {
			opErr = ErrNoMergeSession
			return
		}
		cur, ok := w.session.Current()
		if !ok {
			opErr = clustering.ErrNoOpportunity
			return
		}
		if !(cur.A.ID == aID && cur.B.ID == bID) && !(cur.A.ID == bID && cur.B.ID == aID) {
			opErr = ErrStaleOpportunity
			return
		}
		switch outcome {
		case OutcomeMerge:
			if opErr = w.session.Merge(); opErr != nil {
				return
			}
			w.dirty = true
			w.emit(Notification{Kind: GroupsChanged})
		case OutcomeReject:
			if opErr = w.session.Reject(); opErr != nil {
				return
			}
			w.dirty = true
		case OutcomeSkip:
			opErr = w.session.Skip()
		default:
			opErr = fmt.Errorf("unknown merge outcome %q", outcome)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// SimilarFaces searches the face index for the k nearest faces.
func (w *Workspace) SimilarFaces(embedding []float32, k int) ([]*model.Face, []float64, error) {
	return w.index.Search(embedding, k)
}

// SaveProject writes the project file and clears the dirty flag.
func (w *Workspace) SaveProject(path string) error {
	var opErr error
	err := w.do(func() {
		if opErr = projectfile.WriteFile(path, w.project); opErr == nil {
			w.dirty = false
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
