package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/joescharf/admit/internal/models"
)

// feedbackLogs derives analyzer-accuracy rows from a saved record set.
// A value the reviewer changed counts as an analyzer miss; otherwise a
// "disagree" rating marks the whole finding incorrect.
func feedbackLogs(records []models.CriterionRecord) ([]models.FeedbackLog, error) {
	var logs []models.FeedbackLog
	for _, rec := range records {
		correct := rec.Feedback != models.FeedbackDisagree
		base := models.FeedbackLog{CriterionID: rec.CriterionID}

		switch {
		case rec.Fields != nil:
			keys := make([]string, 0, len(rec.Fields.Fields))
			for k := range rec.Fields.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				f := rec.Fields.Fields[k]
				l := base
				l.FieldType = k
				l.AIValue = deref(f.Original)
				l.UserEdit = f.IsEdited
				if f.IsEdited {
					l.UserValue = deref(f.Value)
				}
				l.ResultCorrect = correct && !f.IsEdited
				logs = append(logs, l)
			}
		case rec.People != nil:
			people, err := json.Marshal(rec.People.People)
			if err != nil {
				return nil, fmt.Errorf("encode people for criterion %d: %w", rec.CriterionID, err)
			}
			l := base
			l.FieldType = "people_list"
			l.AIValue = string(people)
			l.ResultCorrect = correct
			logs = append(logs, l)
		case rec.Authority != nil:
			a := rec.Authority
			l := base
			l.FieldType = "authority_result"
			l.AIValue = string(a.AIResult)
			l.UserEdit = a.IsOverridden
			if a.IsOverridden {
				l.UserValue = string(a.FinalResult)
			}
			l.ResultCorrect = correct && !a.IsOverridden
			logs = append(logs, l)
			if a.FinalReason != a.AIReason {
				logs = append(logs, editedLog(base, "authority_reason", a.AIReason, a.FinalReason))
			}
			if a.FinalOrganization != a.AIOrganization {
				logs = append(logs, editedLog(base, "authority_organization", a.AIOrganization, a.FinalOrganization))
			}
		case rec.SelectedOption != nil:
			l := base
			l.FieldType = "manual_selection"
			l.UserEdit = true
			l.UserValue = *rec.SelectedOption
			l.ResultCorrect = true
			logs = append(logs, l)
		}
	}
	return logs, nil
}

// editedLog records a value the reviewer rewrote, which marks the analyzer's
// value incorrect.
func editedLog(base models.FeedbackLog, fieldType, ai, user string) models.FeedbackLog {
	base.FieldType = fieldType
	base.AIValue = ai
	base.UserEdit = true
	base.UserValue = user
	base.ResultCorrect = false
	return base
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
