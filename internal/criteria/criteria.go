// Package criteria holds the static catalog of admissibility criteria.
package criteria

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joescharf/admit/internal/models"
)

// UnknownCriterionError is returned for ids outside the registered range.
type UnknownCriterionError struct {
	ID int
}

func (e *UnknownCriterionError) Error() string {
	return fmt.Sprintf("unknown criterion: %d", e.ID)
}

// Option is one fixed choice of a manual criterion.
type Option struct {
	Label   string        `json:"label"`
	Outcome models.Status `json:"outcome"`
}

// FieldKey names one field of a fields-shaped finding.
type FieldKey struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Definition describes one criterion. Outcomes maps a final authority result
// to a status and is declared per criterion; two authority criteria may map
// the same result to opposite statuses.
type Definition struct {
	ID       int                                      `json:"id"`
	Label    string                                   `json:"label"`
	Question string                                   `json:"question,omitempty"`
	Mode     models.EvaluationMode                    `json:"mode"`
	Shape    models.Shape                             `json:"shape,omitempty"`
	Options  []Option                                 `json:"options,omitempty"`
	Fields   []FieldKey                               `json:"fields,omitempty"`
	Outcomes map[models.AuthorityResult]models.Status `json:"outcomes,omitempty"`
}

// OutcomeFor returns the status this criterion assigns to an authority result.
func (d Definition) OutcomeFor(r models.AuthorityResult) (models.Status, bool) {
	s, ok := d.Outcomes[r]
	return s, ok
}

// Option returns the manual option with the given label.
func (d Definition) Option(label string) (Option, bool) {
	for _, o := range d.Options {
		if o.Label == label {
			return o, true
		}
	}
	return Option{}, false
}

// HasField reports whether key is one of the criterion's field keys.
func (d Definition) HasField(key string) bool {
	for _, f := range d.Fields {
		if f.Key == key {
			return true
		}
	}
	return false
}

// InitialStatus is the status of the criterion before any input.
func (d Definition) InitialStatus() models.Status {
	if d.Mode == models.ModeManual {
		return models.StatusPending
	}
	return models.StatusNeutral
}

// Registry is a read-only, id-ordered catalog of definitions.
type Registry struct {
	defs []Definition
}

// New validates defs and builds a registry. Ids must run 1..N in order.
func New(defs ...Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("registry needs at least one criterion")
	}
	for i, d := range defs {
		if d.ID != i+1 {
			return nil, fmt.Errorf("criterion at position %d has id %d, want %d", i, d.ID, i+1)
		}
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("criterion %d: %w", d.ID, err)
		}
	}
	owned := make([]Definition, len(defs))
	for i, d := range defs {
		owned[i] = d.clone()
	}
	return &Registry{defs: owned}, nil
}

func (d Definition) clone() Definition {
	d.Options = slices.Clone(d.Options)
	d.Fields = slices.Clone(d.Fields)
	d.Outcomes = maps.Clone(d.Outcomes)
	return d
}

func validate(d Definition) error {
	switch d.Mode {
	case models.ModeManual:
		if len(d.Options) == 0 {
			return fmt.Errorf("manual criterion has no options")
		}
		for _, o := range d.Options {
			if o.Outcome != models.StatusSuccess && o.Outcome != models.StatusFail {
				return fmt.Errorf("option %q has outcome %q", o.Label, o.Outcome)
			}
		}
	case models.ModeAutomatic:
		switch d.Shape {
		case models.ShapeFields:
			if len(d.Fields) == 0 {
				return fmt.Errorf("fields criterion declares no fields")
			}
		case models.ShapePeople:
		case models.ShapeAuthority:
			for _, r := range []models.AuthorityResult{models.ResultApplicable, models.ResultNotApplicable} {
				if _, ok := d.Outcomes[r]; !ok {
					return fmt.Errorf("authority criterion has no outcome for %q", r)
				}
			}
		default:
			return fmt.Errorf("unknown shape %q", d.Shape)
		}
	default:
		return fmt.Errorf("unknown evaluation mode %q", d.Mode)
	}
	return nil
}

// Definition returns the definition for id.
func (r *Registry) Definition(id int) (Definition, error) {
	if id < 1 || id > len(r.defs) {
		return Definition{}, &UnknownCriterionError{ID: id}
	}
	return r.defs[id-1].clone(), nil
}

// IDs returns all criterion ids in registry order.
func (r *Registry) IDs() []int {
	ids := make([]int, len(r.defs))
	for i, d := range r.defs {
		ids[i] = d.ID
	}
	return ids
}

// All returns every definition in registry order.
func (r *Registry) All() []Definition {
	all := make([]Definition, len(r.defs))
	for i, d := range r.defs {
		all[i] = d.clone()
	}
	return all
}
