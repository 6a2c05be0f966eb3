package engine

import (
	"sort"

	"github.com/joescharf/admit/internal/models"
)

// IngestOptions controls what happens when ingestion meets reviewer edits.
type IngestOptions struct {
	// Overwrite replaces edited findings with the new analyzer output.
	Overwrite bool
	// Skip leaves edited findings untouched and ingests the rest.
	Skip bool
}

// IngestResult reports which criteria ingestion replaced and which it skipped.
// Skipped holds manual criteria and, with IngestOptions.Skip, edited ones.
type IngestResult struct {
	Applied []int `json:"applied"`
	Skipped []int `json:"skipped,omitempty"`
}

// Ingest merges analyzer output into the session. Ids missing from payloads
// keep their state, and payloads for manual criteria are ignored. The call is
// all-or-nothing: on error the returned session is nil and s is unchanged.
func Ingest(s *Session, payloads map[int]Payload, opts IngestOptions) (*Session, IngestResult, error) {
	ids := make([]int, 0, len(payloads))
	for id := range payloads {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var stale []int
	skip := make(map[int]bool)
	for _, id := range ids {
		def, err := s.registry.Definition(id)
		if err != nil {
			return nil, IngestResult{}, err
		}
		if def.Mode == models.ModeManual {
			skip[id] = true
			continue
		}
		if err := payloads[id].validate(def); err != nil {
			return nil, IngestResult{}, err
		}
		if isStale(s.states[id]) {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 && !opts.Overwrite && !opts.Skip {
		return nil, IngestResult{}, &StaleIngestionError{IDs: stale}
	}

	if !opts.Overwrite {
		for _, id := range stale {
			skip[id] = true
		}
	}

	var res IngestResult
	next := s.clone()
	for _, id := range ids {
		if skip[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		def, _ := s.registry.Definition(id)
		st := next.states[id]
		payloads[id].apply(def, &st)
		next.states[id] = st
		res.Applied = append(res.Applied, id)
	}
	return next, res, nil
}

// isStale reports whether a reviewer has changed the criterion's finding.
func isStale(st models.CriterionState) bool {
	switch {
	case st.Fields != nil:
		return st.Fields.Edited()
	case st.Authority != nil:
		return st.Authority.Edited()
	}
	return false
}
