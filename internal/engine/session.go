// Package engine reconciles analyzer findings with reviewer edits into one
// auditable decision per admissibility criterion.
//
// Every operation takes a *Session and returns a new one; the input session
// is never modified, so a caller holding a snapshot always sees a consistent
// state.
package engine

import (
	"encoding/json"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// Session is the review state of one document across all criteria.
type Session struct {
	ReviewID string
	Revision int

	registry *criteria.Registry
	states   map[int]models.CriterionState
}

// NewSession starts a review: manual criteria are pending, automatic ones neutral.
func NewSession(reviewID string, reg *criteria.Registry) *Session {
	s := &Session{
		ReviewID: reviewID,
		registry: reg,
		states:   make(map[int]models.CriterionState),
	}
	for _, d := range reg.All() {
		s.states[d.ID] = models.CriterionState{ID: d.ID, Status: d.InitialStatus()}
	}
	return s
}

// Registry returns the catalog the session was started with.
func (s *Session) Registry() *criteria.Registry {
	return s.registry
}

// State returns a copy of one criterion's state.
func (s *Session) State(id int) (models.CriterionState, error) {
	if _, err := s.registry.Definition(id); err != nil {
		return models.CriterionState{}, err
	}
	return s.states[id].Clone(), nil
}

// States returns copies of all criterion states in registry order.
func (s *Session) States() []models.CriterionState {
	ids := s.registry.IDs()
	out := make([]models.CriterionState, len(ids))
	for i, id := range ids {
		out[i] = s.states[id].Clone()
	}
	return out
}

// MarshalJSON renders the session with its criteria in registry order.
func (s *Session) MarshalJSON() ([]byte, error) {
	unverified := UnverifiedAuthorityCriteria(s)
	if unverified == nil {
		unverified = []int{}
	}
	return json.Marshal(struct {
		ReviewID   string                  `json:"review_id"`
		Revision   int                     `json:"revision"`
		Criteria   []models.CriterionState `json:"criteria"`
		Unverified []int                   `json:"unverified"`
	}{s.ReviewID, s.Revision, s.States(), unverified})
}

func (s *Session) clone() *Session {
	c := &Session{
		ReviewID: s.ReviewID,
		Revision: s.Revision + 1,
		registry: s.registry,
		states:   make(map[int]models.CriterionState, len(s.states)),
	}
	for id, st := range s.states {
		c.states[id] = st.Clone()
	}
	return c
}

// update applies fn to a copy of one criterion and returns the new session.
// The receiver is left untouched when fn fails.
func (s *Session) update(id int, fn func(def criteria.Definition, st *models.CriterionState) error) (*Session, error) {
	def, err := s.registry.Definition(id)
	if err != nil {
		return nil, err
	}
	st := s.states[id].Clone()
	if err := fn(def, &st); err != nil {
		return nil, err
	}
	next := s.clone()
	next.states[id] = st
	return next, nil
}
