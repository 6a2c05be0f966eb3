package engine

import (
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
)

// EditField sets a field of a fields-shaped finding. The criterion's status
// is left as the analyzer set it.
func EditField(s *Session, id int, key string, value *string) (*Session, error) {
	return s.update(id, func(def criteria.Definition, st *models.CriterionState) error {
		if err := requireAutomatic(def, st); err != nil {
			return err
		}
		if def.Shape != models.ShapeFields {
			return &PayloadShapeError{ID: id, Want: def.Shape, Got: models.ShapeFields}
		}
		fld, ok := st.Fields.Fields[key]
		if !ok || !def.HasField(key) {
			return &UnknownFieldError{ID: id, Key: key}
		}
		st.Fields.Fields[key] = fld.WithValue(value)
		return nil
	})
}

func requireAutomatic(def criteria.Definition, st *models.CriterionState) error {
	if def.Mode == models.ModeManual {
		return &ManualCriterionError{ID: def.ID}
	}
	if !st.HasFinding() {
		return &NoFindingYetError{ID: def.ID}
	}
	return nil
}
