package engine

import (
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// authorityStatus derives status from the criterion's own outcome table.
func authorityStatus(def criteria.Definition, a *models.AuthorityFinding) models.Status {
	if s, ok := def.OutcomeFor(a.FinalResult); ok {
		return s
	}
	return models.StatusFail
}

// mutateAuthority runs fn on the criterion's authority finding, then
// recomputes the derived flags and clears verification. Any change, even to
// the same value, invalidates a prior sign-off.
func (s *Session) mutateAuthority(id int, fn func(a *models.AuthorityFinding) error) (*Session, error) {
	return s.update(id, func(def criteria.Definition, st *models.CriterionState) error {
		if err := requireAuthority(def, st); err != nil {
			return err
		}
		if err := fn(st.Authority); err != nil {
			return err
		}
		st.Authority.IsOverridden = st.Authority.FinalResult != st.Authority.AIResult
		st.Authority.IsVerified = false
		st.Status = authorityStatus(def, st.Authority)
		return nil
	})
}

func requireAuthority(def criteria.Definition, st *models.CriterionState) error {
	if err := requireAutomatic(def, st); err != nil {
		return err
	}
	if def.Shape != models.ShapeAuthority {
		return &PayloadShapeError{ID: def.ID, Want: def.Shape, Got: models.ShapeAuthority}
	}
	return nil
}

// ToggleAuthorityResult flips the final result between applicable and not
// applicable. Calling it twice restores the original result.
func ToggleAuthorityResult(s *Session, id int) (*Session, error) {
	return s.mutateAuthority(id, func(a *models.AuthorityFinding) error {
		a.FinalResult = a.FinalResult.Opposite()
		return nil
	})
}

// SetAuthorityResult sets the final result explicitly.
func SetAuthorityResult(s *Session, id int, result models.AuthorityResult) (*Session, error) {
	return s.mutateAuthority(id, func(a *models.AuthorityFinding) error {
		if !result.Valid() {
			return &InvalidResultError{ID: id, Result: result}
		}
		a.FinalResult = result
		return nil
	})
}

// EditAuthorityReason replaces the final reason.
func EditAuthorityReason(s *Session, id int, reason string) (*Session, error) {
	return s.mutateAuthority(id, func(a *models.AuthorityFinding) error {
		a.FinalReason = reason
		return nil
	})
}

// SetAuthorityOrganization replaces the final organization.
func SetAuthorityOrganization(s *Session, id int, org string) (*Session, error) {
	return s.mutateAuthority(id, func(a *models.AuthorityFinding) error {
		a.FinalOrganization = org
		return nil
	})
}

// Verify records the reviewer's sign-off on the current final values.
func Verify(s *Session, id int) (*Session, error) {
	return s.update(id, func(def criteria.Definition, st *models.CriterionState) error {
		if err := requireAuthority(def, st); err != nil {
			return err
		}
		st.Authority.IsVerified = true
		return nil
	})
}

// UnverifiedAuthorityCriteria lists, in registry order, the authority
// criteria whose current values have no sign-off.
func UnverifiedAuthorityCriteria(s *Session) []int {
	var ids []int
	for _, id := range s.registry.IDs() {
		if a := s.states[id].Authority; a != nil && !a.IsVerified {
			ids = append(ids, id)
		}
	}
	return ids
}
