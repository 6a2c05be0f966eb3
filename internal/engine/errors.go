package engine

import (
	"fmt"
	"strings"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// UnknownCriterionError is returned when an id is not in the registry.
type UnknownCriterionError = criteria.UnknownCriterionError

// NoFindingYetError is returned when an edit targets a criterion that has no
// ingested finding.
type NoFindingYetError struct {
	ID int
}

func (e *NoFindingYetError) Error() string {
	return fmt.Sprintf("criterion %d has no finding yet", e.ID)
}

// StaleIngestionError is returned when ingestion would replace findings a
// reviewer has already changed. IDs lists every affected criterion.
type StaleIngestionError struct {
	IDs []int
}

func (e *StaleIngestionError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("ingestion would discard reviewer edits on criteria %s", strings.Join(ids, ", "))
}

// ManualCriterionError is returned when an automatic-only operation targets
// a manual criterion.
type ManualCriterionError struct {
	ID int
}

func (e *ManualCriterionError) Error() string {
	return fmt.Sprintf("criterion %d is evaluated manually", e.ID)
}

// NotManualError is returned when an option is selected on an automatic criterion.
type NotManualError struct {
	ID int
}

func (e *NotManualError) Error() string {
	return fmt.Sprintf("criterion %d is not a manual criterion", e.ID)
}

// UnknownFieldError is returned for a field key the criterion does not declare.
type UnknownFieldError struct {
	ID  int
	Key string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("criterion %d has no field %q", e.ID, e.Key)
}

// UnknownOptionError is returned for a manual option label that is not defined.
type UnknownOptionError struct {
	ID    int
	Label string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("criterion %d has no option %q", e.ID, e.Label)
}

// PayloadShapeError is returned when a payload or operation does not match
// the criterion's finding shape.
type PayloadShapeError struct {
	ID   int
	Want models.Shape
	Got  models.Shape
}

func (e *PayloadShapeError) Error() string {
	return fmt.Sprintf("criterion %d expects a %s finding, got %s", e.ID, e.Want, e.Got)
}

// InvalidResultError is returned for an authority result outside the two
// admissible values.
type InvalidResultError struct {
	ID     int
	Result models.AuthorityResult
}

func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("criterion %d: invalid authority result %q", e.ID, e.Result)
}

// InvalidFeedbackError is returned for an unknown feedback value.
type InvalidFeedbackError struct {
	Feedback models.Feedback
}

func (e *InvalidFeedbackError) Error() string {
	return fmt.Sprintf("invalid feedback %q", e.Feedback)
}

// SessionNotFoundError is returned by the Manager for reviews without a live session.
type SessionNotFoundError struct {
	ReviewID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("no review session for %s", e.ReviewID)
}
