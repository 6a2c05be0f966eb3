package models

// CriterionRecord is the persisted final decision for one criterion.
// Status, Reason and Organization always hold the human (final) values.
type CriterionRecord struct {
	CriterionID    int               `json:"criterion_id"`
	Status         Status            `json:"status"`
	SelectedOption *string           `json:"selected_option,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Organization   string            `json:"organization,omitempty"`
	Fields         *FieldFinding     `json:"fields,omitempty"`
	People         *PeopleFinding    `json:"people,omitempty"`
	Authority      *AuthorityFinding `json:"authority,omitempty"`
	Feedback       Feedback          `json:"feedback,omitempty"`
}
