package engine

import (
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// Payload is the analyzer output for one criterion. Exactly one member is set.
type Payload struct {
	Fields    *FieldsPayload    `json:"fields,omitempty"`
	People    *PeoplePayload    `json:"people,omitempty"`
	Authority *AuthorityPayload `json:"authority,omitempty"`
}

// FieldsPayload carries extracted fields; a nil value means "not found".
type FieldsPayload struct {
	Status models.Status      `json:"status"`
	Title  string             `json:"title,omitempty"`
	Reason string             `json:"reason,omitempty"`
	Values map[string]*string `json:"values"`
}

// PeoplePayload carries the people detected in the document.
type PeoplePayload struct {
	Status models.Status   `json:"status"`
	Title  string          `json:"title,omitempty"`
	Reason string          `json:"reason,omitempty"`
	People []models.Person `json:"people"`
}

// AuthorityPayload carries a binary jurisdiction decision.
type AuthorityPayload struct {
	Result       models.AuthorityResult `json:"result"`
	Reason       string                 `json:"reason"`
	Organization string                 `json:"organization,omitempty"`
	Evidence     string                 `json:"evidence,omitempty"`
}

// Shape reports which finding shape the payload carries, or "" when it
// carries none or more than one.
func (p Payload) Shape() models.Shape {
	var shape models.Shape
	n := 0
	if p.Fields != nil {
		shape = models.ShapeFields
		n++
	}
	if p.People != nil {
		shape = models.ShapePeople
		n++
	}
	if p.Authority != nil {
		shape = models.ShapeAuthority
		n++
	}
	if n != 1 {
		return ""
	}
	return shape
}

// analyzerStatus maps the analyzer's verdict to success/fail; anything other
// than success counts as a failure.
func analyzerStatus(s models.Status) models.Status {
	if s == models.StatusSuccess {
		return models.StatusSuccess
	}
	return models.StatusFail
}

func (p Payload) validate(def criteria.Definition) error {
	shape := p.Shape()
	if shape != def.Shape {
		return &PayloadShapeError{ID: def.ID, Want: def.Shape, Got: shape}
	}
	switch shape {
	case models.ShapeFields:
		for key := range p.Fields.Values {
			if !def.HasField(key) {
				return &UnknownFieldError{ID: def.ID, Key: key}
			}
		}
	case models.ShapeAuthority:
		if !p.Authority.Result.Valid() {
			return &InvalidResultError{ID: def.ID, Result: p.Authority.Result}
		}
	}
	return nil
}

// apply replaces st's finding with one built from p. Feedback is reset since
// it rated the previous finding.
func (p Payload) apply(def criteria.Definition, st *models.CriterionState) {
	st.Fields, st.People, st.Authority = nil, nil, nil
	st.Feedback = models.FeedbackNone

	switch def.Shape {
	case models.ShapeFields:
		f := &models.FieldFinding{
			Status: analyzerStatus(p.Fields.Status),
			Title:  p.Fields.Title,
			Reason: p.Fields.Reason,
			Fields: make(map[string]models.Field, len(def.Fields)),
		}
		for _, k := range def.Fields {
			f.Fields[k.Key] = models.NewField(p.Fields.Values[k.Key])
		}
		st.Fields = f
		st.Status = f.Status
	case models.ShapePeople:
		f := &models.PeopleFinding{
			Status: analyzerStatus(p.People.Status),
			Title:  p.People.Title,
			Reason: p.People.Reason,
			People: append([]models.Person(nil), p.People.People...),
		}
		st.People = f
		st.Status = f.Status
	case models.ShapeAuthority:
		a := p.Authority
		st.Authority = &models.AuthorityFinding{
			AIResult:          a.Result,
			AIReason:          a.Reason,
			AIOrganization:    a.Organization,
			FinalResult:       a.Result,
			FinalReason:       a.Reason,
			FinalOrganization: a.Organization,
			Evidence:          a.Evidence,
		}
		st.Status = authorityStatus(def, st.Authority)
	}
}
