package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/metrics"
	"github.com/joescharf/admit/internal/models"
)

// RecordStore persists a full record set for a review. A save replaces any
// earlier record set for the same review (last writer wins).
type RecordStore interface {
	SaveRecords(ctx context.Context, reviewID string, records []models.CriterionRecord) error
}

// Operation transforms a session snapshot into the next one.
type Operation func(*Session) (*Session, error)

// SaveResult describes the outcome of Commit.
type SaveResult struct {
	Saved             bool                     `json:"saved"`
	NeedsConfirmation bool                     `json:"needs_confirmation"`
	Unverified        []int                    `json:"unverified"`
	Records           []models.CriterionRecord `json:"records,omitempty"`
}

// Manager holds the live sessions of one process, keyed by review id.
// Operations on all sessions are serialized by a single mutex.
type Manager struct {
	mu       sync.Mutex
	registry *criteria.Registry
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use reg.
func NewManager(reg *criteria.Registry) *Manager {
	return &Manager{
		registry: reg,
		sessions: make(map[string]*Session),
	}
}

// Registry returns the catalog new sessions are started with.
func (m *Manager) Registry() *criteria.Registry {
	return m.registry
}

// Start returns the live session for reviewID, creating a fresh one if needed.
func (m *Manager) Start(reviewID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[reviewID]; ok {
		return s
	}
	s := NewSession(reviewID, m.registry)
	m.sessions[reviewID] = s
	log.Debug().Str("review_id", reviewID).Msg("review session started")
	return s
}

// Get returns the current snapshot of a live session.
func (m *Manager) Get(reviewID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[reviewID]
	if !ok {
		return nil, &SessionNotFoundError{ReviewID: reviewID}
	}
	return s, nil
}

// Apply runs op against the current snapshot and installs the result only
// when op succeeds.
func (m *Manager) Apply(reviewID, name string, op Operation) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[reviewID]
	if !ok {
		err := &SessionNotFoundError{ReviewID: reviewID}
		metrics.RecordOperation(name, err)
		return nil, err
	}
	next, err := op(cur)
	metrics.RecordOperation(name, err)
	if err != nil {
		log.Debug().Err(err).Str("review_id", reviewID).Str("op", name).Msg("operation rejected")
		return nil, err
	}
	m.sessions[reviewID] = next
	return next, nil
}

// Ingest applies analyzer output to a live session.
func (m *Manager) Ingest(reviewID string, payloads map[int]Payload, opts IngestOptions) (*Session, IngestResult, error) {
	var res IngestResult
	s, err := m.Apply(reviewID, "ingest", func(cur *Session) (*Session, error) {
		next, r, err := Ingest(cur, payloads, opts)
		res = r
		return next, err
	})
	if err != nil {
		return nil, IngestResult{}, err
	}
	log.Info().Str("review_id", reviewID).Ints("applied", res.Applied).Ints("skipped", res.Skipped).Msg("findings ingested")
	return s, res, nil
}

// Discard drops a live session without saving it.
func (m *Manager) Discard(reviewID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, reviewID)
}

// Commit saves the session's records. When authority criteria are still
// unverified and confirm is false, nothing is written and the result asks
// for confirmation. After a successful write the session is discarded,
// unless it changed while the write was in flight.
func (m *Manager) Commit(ctx context.Context, reviewID string, confirm bool, rs RecordStore) (*SaveResult, error) {
	m.mu.Lock()
	snap, ok := m.sessions[reviewID]
	m.mu.Unlock()
	if !ok {
		return nil, &SessionNotFoundError{ReviewID: reviewID}
	}

	res := &SaveResult{
		Unverified: UnverifiedAuthorityCriteria(snap),
		Records:    BuildSaveRecords(snap),
	}
	if len(res.Unverified) > 0 && !confirm {
		res.NeedsConfirmation = true
		metrics.RecordSave("needs_confirmation", len(res.Unverified))
		return res, nil
	}

	if err := rs.SaveRecords(ctx, reviewID, res.Records); err != nil {
		metrics.RecordSave("error", len(res.Unverified))
		return nil, fmt.Errorf("save records: %w", err)
	}
	res.Saved = true
	metrics.RecordSave("saved", len(res.Unverified))

	m.mu.Lock()
	if m.sessions[reviewID] == snap {
		delete(m.sessions, reviewID)
	}
	m.mu.Unlock()

	log.Info().Str("review_id", reviewID).Int("records", len(res.Records)).Ints("unverified", res.Unverified).Msg("review saved")
	return res, nil
}
