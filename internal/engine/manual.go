package engine

import (
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// SelectOption records the reviewer's choice on a manual criterion; the
// status becomes the option's outcome.
func SelectOption(s *Session, id int, label string) (*Session, error) {
	return s.update(id, func(def criteria.Definition, st *models.CriterionState) error {
		if def.Mode != models.ModeManual {
			return &NotManualError{ID: id}
		}
		opt, ok := def.Option(label)
		if !ok {
			return &UnknownOptionError{ID: id, Label: label}
		}
		st.SelectedOption = &opt.Label
		st.Status = opt.Outcome
		return nil
	})
}

// SetFeedback records the reviewer's rating of a finding. Giving the same
// rating twice clears it. Feedback never changes status.
func SetFeedback(s *Session, id int, fb models.Feedback) (*Session, error) {
	return s.update(id, func(def criteria.Definition, st *models.CriterionState) error {
		if !fb.Valid() {
			return &InvalidFeedbackError{Feedback: fb}
		}
		if err := requireAutomatic(def, st); err != nil {
			return err
		}
		if st.Feedback == fb {
			st.Feedback = models.FeedbackNone
		} else {
			st.Feedback = fb
		}
		return nil
	})
}
