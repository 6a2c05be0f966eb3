package engine

import (
	"github.com/joescharf/admit/internal/models"
)

// BuildSaveRecords turns the session into the record set to persist, one
// record per touched criterion in registry order. Authority records take
// status, reason and organization from the final values.
func BuildSaveRecords(s *Session) []models.CriterionRecord {
	var out []models.CriterionRecord
	for _, id := range s.registry.IDs() {
		st := s.states[id].Clone()
		rec := models.CriterionRecord{
			CriterionID: id,
			Status:      st.Status,
			Feedback:    st.Feedback,
		}
		switch {
		case st.SelectedOption != nil:
			rec.SelectedOption = st.SelectedOption
		case st.Fields != nil:
			rec.Fields = st.Fields
			rec.Reason = st.Fields.Reason
		case st.People != nil:
			rec.People = st.People
			rec.Reason = st.People.Reason
		case st.Authority != nil:
			rec.Authority = st.Authority
			rec.Reason = st.Authority.FinalReason
			rec.Organization = st.Authority.FinalOrganization
		default:
			continue
		}
		out = append(out, rec)
	}
	return out
}
