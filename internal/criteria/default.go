package criteria

import "github.com/joescharf/admit/internal/models"

// Field keys of the detail-sufficiency criterion.
const (
	FieldOfficial = "official"
	FieldEntity   = "entity"
	FieldBehavior = "behavior"
	FieldDate     = "date"
	FieldLocation = "location"
)

func successWhenApplicable() map[models.AuthorityResult]models.Status {
	return map[models.AuthorityResult]models.Status{
		models.ResultApplicable:    models.StatusSuccess,
		models.ResultNotApplicable: models.StatusFail,
	}
}

func failWhenApplicable() map[models.AuthorityResult]models.Status {
	return map[models.AuthorityResult]models.Status{
		models.ResultApplicable:    models.StatusFail,
		models.ResultNotApplicable: models.StatusSuccess,
	}
}

// Default returns the initial-review catalog used for complaint intake.
func Default() *Registry {
	r, err := New(
		Definition{
			ID:       1,
			Label:    "Auditee is under the supervision of the audit office",
			Question: "Is the complained-about body an auditee that falls under the audit office's supervision?",
			Mode:     models.ModeAutomatic,
			Shape:    models.ShapeAuthority,
			Outcomes: successWhenApplicable(),
		},
		Definition{
			ID:       2,
			Label:    "Matter is within the duties of the Auditor General",
			Question: "Is the complained-about matter within the duties and jurisdiction of the Auditor General?",
			Mode:     models.ModeAutomatic,
			Shape:    models.ShapeAuthority,
			Outcomes: successWhenApplicable(),
		},
		Definition{
			ID:    3,
			Label: "Incident occurred no more than 5 years before the office received the complaint",
			Mode:  models.ModeManual,
			Options: []Option{
				{Label: "exceeds 5 years", Outcome: models.StatusFail},
				{Label: "within 5 years", Outcome: models.StatusSuccess},
				{Label: "not specified", Outcome: models.StatusFail},
			},
		},
		Definition{
			ID:    4,
			Label: "Complaint gives sufficient detail to be investigated",
			Mode:  models.ModeAutomatic,
			Shape: models.ShapeFields,
			Fields: []FieldKey{
				{Key: FieldOfficial, Label: "Official complained about", Required: true},
				{Key: FieldEntity, Label: "Audited entity", Required: true},
				{Key: FieldBehavior, Label: "Alleged behavior", Required: true},
				{Key: FieldDate, Label: "Date or period"},
				{Key: FieldLocation, Label: "Location"},
			},
		},
		Definition{
			ID:    5,
			Label: "Matter has not already been investigated and reported on",
			Mode:  models.ModeManual,
			Options: []Option{
				{Label: "already reported", Outcome: models.StatusFail},
				{Label: "not reported", Outcome: models.StatusSuccess},
			},
		},
		Definition{
			ID:    6,
			Label: "Complainant details",
			Mode:  models.ModeAutomatic,
			Shape: models.ShapePeople,
		},
		Definition{
			ID:       7,
			Label:    "Complaint is not being handled by another agency",
			Question: "Is the complained-about matter already being handled by another agency (court, police, another inspection body)?",
			Mode:     models.ModeAutomatic,
			Shape:    models.ShapeAuthority,
			Outcomes: failWhenApplicable(),
		},
		Definition{
			ID:       8,
			Label:    "Complaint falls within the authority of another independent body",
			Question: "Does the complained-about matter fall within the authority of another independent constitutional body (e.g. the anti-corruption commission, the ombudsman, the election commission)?",
			Mode:     models.ModeAutomatic,
			Shape:    models.ShapeAuthority,
			Outcomes: failWhenApplicable(),
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
