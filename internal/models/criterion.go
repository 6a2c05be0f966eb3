package models

// Status is the pass/fail state of one admissibility criterion.
type Status string

const (
	StatusNeutral Status = "neutral"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// EvaluationMode says who decides a criterion.
type EvaluationMode string

const (
	ModeAutomatic EvaluationMode = "automatic"
	ModeManual    EvaluationMode = "manual"
)

// Shape is the structure of an analyzer finding for an automatic criterion.
type Shape string

const (
	ShapeFields    Shape = "fields"
	ShapePeople    Shape = "people"
	ShapeAuthority Shape = "authority"
)

// Feedback is the reviewer's thumbs-up/down on an analyzer finding.
type Feedback string

const (
	FeedbackNone     Feedback = ""
	FeedbackAgree    Feedback = "agree"
	FeedbackDisagree Feedback = "disagree"
)

// Valid reports whether f is a known feedback value.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackNone, FeedbackAgree, FeedbackDisagree:
		return true
	}
	return false
}

// AuthorityResult is the binary admissibility decision of an authority finding.
type AuthorityResult string

const (
	ResultApplicable    AuthorityResult = "applicable"
	ResultNotApplicable AuthorityResult = "not_applicable"
)

// Valid reports whether r is one of the two admissible results.
func (r AuthorityResult) Valid() bool {
	return r == ResultApplicable || r == ResultNotApplicable
}

// Opposite returns the other admissible result.
func (r AuthorityResult) Opposite() AuthorityResult {
	if r == ResultApplicable {
		return ResultNotApplicable
	}
	return ResultApplicable
}

// Field is one extracted fact of a finding, with its first-ingested value kept.
type Field struct {
	Value    *string `json:"value"`
	Original *string `json:"original"`
	IsEdited bool    `json:"is_edited"`
}

// NewField returns an unedited field whose original equals v.
func NewField(v *string) Field {
	return Field{Value: copyString(v), Original: copyString(v)}
}

// WithValue returns a copy of f holding v, with IsEdited recomputed.
func (f Field) WithValue(v *string) Field {
	f.Value = copyString(v)
	f.IsEdited = !equalString(f.Value, f.Original)
	return f
}

// FieldFinding is a finding made of named fields ("detail sufficiency").
type FieldFinding struct {
	Status Status           `json:"status"`
	Title  string           `json:"title,omitempty"`
	Reason string           `json:"reason,omitempty"`
	Fields map[string]Field `json:"fields"`
}

// Edited reports whether any field differs from its original.
func (f *FieldFinding) Edited() bool {
	for _, fld := range f.Fields {
		if fld.IsEdited {
			return true
		}
	}
	return false
}

// PersonRole is the part a named person plays in a complaint.
type PersonRole string

const (
	RoleComplainant PersonRole = "complainant"
	RoleRespondent  PersonRole = "respondent"
	RoleWitness     PersonRole = "witness"
)

// Person is a named individual detected in the document.
type Person struct {
	Name string     `json:"name"`
	Role PersonRole `json:"role"`
}

// PeopleFinding is a finding listing the people detected in a document.
type PeopleFinding struct {
	Status Status   `json:"status"`
	Title  string   `json:"title,omitempty"`
	Reason string   `json:"reason,omitempty"`
	People []Person `json:"people"`
}

// AuthorityFinding is a binary jurisdiction-style decision. The AI* values are
// write-once; the Final* values carry the reviewer's decision.
type AuthorityFinding struct {
	AIResult          AuthorityResult `json:"ai_result"`
	AIReason          string          `json:"ai_reason"`
	AIOrganization    string          `json:"ai_organization,omitempty"`
	FinalResult       AuthorityResult `json:"final_result"`
	FinalReason       string          `json:"final_reason"`
	FinalOrganization string          `json:"final_organization,omitempty"`
	Evidence          string          `json:"evidence,omitempty"`
	IsOverridden      bool            `json:"is_overridden"`
	IsVerified        bool            `json:"is_verified"`
}

// Edited reports whether any final value differs from the analyzer's.
func (a *AuthorityFinding) Edited() bool {
	return a.IsOverridden || a.FinalReason != a.AIReason || a.FinalOrganization != a.AIOrganization
}

// CriterionState is the in-session state of one criterion. At most one of
// Fields, People and Authority is set, and only for automatic criteria.
type CriterionState struct {
	ID             int               `json:"id"`
	Status         Status            `json:"status"`
	SelectedOption *string           `json:"selected_option,omitempty"`
	Fields         *FieldFinding     `json:"fields,omitempty"`
	People         *PeopleFinding    `json:"people,omitempty"`
	Authority      *AuthorityFinding `json:"authority,omitempty"`
	Feedback       Feedback          `json:"feedback,omitempty"`
}

// HasFinding reports whether analyzer output has been ingested.
func (c CriterionState) HasFinding() bool {
	return c.Fields != nil || c.People != nil || c.Authority != nil
}

// Clone returns a deep copy of c.
func (c CriterionState) Clone() CriterionState {
	c.SelectedOption = copyString(c.SelectedOption)
	if c.Fields != nil {
		f := *c.Fields
		f.Fields = make(map[string]Field, len(c.Fields.Fields))
		for k, v := range c.Fields.Fields {
			f.Fields[k] = Field{Value: copyString(v.Value), Original: copyString(v.Original), IsEdited: v.IsEdited}
		}
		c.Fields = &f
	}
	if c.People != nil {
		p := *c.People
		p.People = append([]Person(nil), c.People.People...)
		c.People = &p
	}
	if c.Authority != nil {
		a := *c.Authority
		c.Authority = &a
	}
	return c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
