package clustering

import (
	"errors"

	"github.com/google/uuid"

	"github.com/phantomlab/facetriage/internal/model"
)

// ErrNoOpportunity is returned when a decision is made on a session that has
// no current candidate (the session is done).
var ErrNoOpportunity = errors.New("merge session has no current opportunity")

// MergeSession walks the user through merge candidates one at a time.
// Each candidate takes one of three outcomes: Merge absorbs the second group
// into the first, Reject permanently excludes the pair, Skip hides the pair
// for the rest of the session only. After each decision the remaining
// candidates are re-derived; when exhausted the session is done and can be
// reopened to pick up opportunities created by earlier merges.
type MergeSession struct {
	project     *model.Project
	maxDistance float64
	ignored     map[PairKey]struct{}
	pending     []Opportunity
	done        bool
}

func NewMergeSession(project *model.Project) *MergeSession {
	return NewMergeSessionWithin(project, MergeCandidateMaxDistance)
}

// NewMergeSessionWithin starts a session with an explicit candidate
// distance threshold.
func NewMergeSessionWithin(project *model.Project, maxDistance float64) *MergeSession {
	s := &MergeSession{
		project:     project,
		maxDistance: maxDistance,
		ignored:     make(map[PairKey]struct{}),
	}
	s.refresh()
	return s
}

// Current returns the candidate awaiting a decision, ok=false when done.
func (s *MergeSession) Current() (Opportunity, bool) {
	if s.done || len(s.pending) == 0 {
		return Opportunity{}, false
	}
	return s.pending[0], true
}

// Done reports whether all candidates have been decided.
func (s *MergeSession) Done() bool {
	return s.done
}

// Remaining returns how many candidates are still queued in this pass.
func (s *MergeSession) Remaining() int {
	return len(s.pending)
}

// Opportunities returns a copy of the candidates still awaiting decisions.
func (s *MergeSession) Opportunities() []Opportunity {
	out := make([]Opportunity, len(s.pending))
	copy(out, s.pending)
	return out
}

// Merge absorbs the current candidate's second group into its first.
func (s *MergeSession) Merge() error {
	cur, ok := s.Current()
	if !ok {
		return ErrNoOpportunity
	}
	if err := s.project.CombineGroups(cur.A.ID, cur.B.ID); err != nil {
		return err
	}
	s.forgetGroup(cur.B.ID)
	s.refresh()
	return nil
}

// Reject permanently excludes the current candidate pair from merging.
// The exclusion is symmetric and survives recomputes and project saves.
func (s *MergeSession) Reject() error {
	cur, ok := s.Current()
	if !ok {
		return ErrNoOpportunity
	}
	if err := s.project.ExcludeMerge(cur.A.ID, cur.B.ID); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Skip hides the current candidate pair for the rest of this session.
func (s *MergeSession) Skip() error {
	cur, ok := s.Current()
	if !ok {
		return ErrNoOpportunity
	}
	s.ignored[NewPairKey(cur.A.ID, cur.B.ID)] = struct{}{}
	s.refresh()
	return nil
}

// Reopen leaves the done state and recomputes candidates. Session skips are
// kept, so only genuinely new opportunities resurface.
func (s *MergeSession) Reopen() {
	s.done = false
	s.refresh()
}

func (s *MergeSession) refresh() {
	s.pending = FindMergeOpportunitiesWithin(s.project.Groups(), s.ignored, s.maxDistance)
	s.done = len(s.pending) == 0
}

// forgetGroup drops ignore entries referencing a deleted group.
func (s *MergeSession) forgetGroup(id uuid.UUID) {
	for key := range s.ignored {
		if key.lo == id || key.hi == id {
			delete(s.ignored, key)
		}
	}
}
