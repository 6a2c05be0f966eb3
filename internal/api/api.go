package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/joescharf/admit/internal/analyzer"
	"github.com/joescharf/admit/internal/engine"
	"github.com/joescharf/admit/internal/metrics"
	"github.com/joescharf/admit/internal/models"
	"github.com/joescharf/admit/internal/store"
)

const staleMessage = "analysis results could not be applied, your edits are preserved"

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	reviews  *engine.Manager
	analyzer analyzer.Analyzer
	text     analyzer.TextSource
	metrics  bool
}

// Option configures a Server.
type Option func(*Server)

// WithAnalyzer enables the analyze endpoint.
func WithAnalyzer(a analyzer.Analyzer, ts analyzer.TextSource) Option {
	return func(s *Server) {
		s.analyzer = a
		s.text = ts
	}
}

// WithMetrics mounts the Prometheus handler on /metrics.
func WithMetrics() Option {
	return func(s *Server) { s.metrics = true }
}

// NewServer creates a new API server.
func NewServer(st store.Store, reviews *engine.Manager, opts ...Option) *Server {
	s := &Server{store: st, reviews: reviews}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/criteria", s.listCriteria)

	mux.HandleFunc("GET /api/v1/reviews", s.listReviews)
	mux.HandleFunc("POST /api/v1/reviews", s.createReview)
	mux.HandleFunc("GET /api/v1/reviews/{id}", s.getReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.deleteReview)

	mux.HandleFunc("POST /api/v1/reviews/{id}/session", s.startSession)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}/session", s.abandonSession)
	mux.HandleFunc("POST /api/v1/reviews/{id}/ingest", s.ingest)
	mux.HandleFunc("POST /api/v1/reviews/{id}/analyze", s.analyze)

	mux.HandleFunc("PUT /api/v1/reviews/{id}/criteria/{cid}/option", s.selectOption)
	mux.HandleFunc("PUT /api/v1/reviews/{id}/criteria/{cid}/fields/{key}", s.editField)
	mux.HandleFunc("POST /api/v1/reviews/{id}/criteria/{cid}/toggle", s.toggleAuthority)
	mux.HandleFunc("PUT /api/v1/reviews/{id}/criteria/{cid}/authority", s.updateAuthority)
	mux.HandleFunc("POST /api/v1/reviews/{id}/criteria/{cid}/verify", s.verify)
	mux.HandleFunc("PUT /api/v1/reviews/{id}/criteria/{cid}/feedback", s.setFeedback)

	mux.HandleFunc("GET /api/v1/reviews/{id}/unverified", s.unverified)
	mux.HandleFunc("GET /api/v1/reviews/{id}/preview", s.preview)
	mux.HandleFunc("POST /api/v1/reviews/{id}/save", s.save)
	mux.HandleFunc("GET /api/v1/reviews/{id}/records", s.listRecords)
	mux.HandleFunc("GET /api/v1/reviews/{id}/feedback-logs", s.listFeedbackLogs)

	if s.metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return corsMiddleware(requestLogger(metrics.Middleware(mux)))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine and store errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		stale     *engine.StaleIngestionError
		unknown   *engine.UnknownCriterionError
		noSession *engine.SessionNotFoundError
		noFinding *engine.NoFindingYetError
		shape     *engine.PayloadShapeError
		manual    *engine.ManualCriterionError
		notManual *engine.NotManualError
		field     *engine.UnknownFieldError
		option    *engine.UnknownOptionError
		result    *engine.InvalidResultError
		feedback  *engine.InvalidFeedbackError
	)
	switch {
	case errors.As(err, &stale):
		writeJSON(w, http.StatusConflict, map[string]any{"error": staleMessage, "stale": stale.IDs})
	case errors.As(err, &unknown), errors.As(err, &noSession), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &noFinding), errors.As(err, &shape):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &manual), errors.As(err, &notManual), errors.As(err, &field),
		errors.As(err, &option), errors.As(err, &result), errors.As(err, &feedback):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func criterionID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid criterion id")
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func ingestOptions(w http.ResponseWriter, r *http.Request) (engine.IngestOptions, bool) {
	overwrite, err := queryBool(r, "overwrite")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid overwrite flag")
		return engine.IngestOptions{}, false
	}
	skip, err := queryBool(r, "skip")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid skip flag")
		return engine.IngestOptions{}, false
	}
	return engine.IngestOptions{Overwrite: overwrite, Skip: skip}, true
}

// --- Criteria ---

func (s *Server) listCriteria(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reviews.Registry().All())
}

// --- Reviews ---

type reviewResponse struct {
	Review  *models.Review  `json:"review"`
	Session *engine.Session `json:"session"`
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	status := models.ReviewStatus(r.URL.Query().Get("status"))
	reviews, err := s.store.ListReviews(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var rev models.Review
	if err := json.NewDecoder(r.Body).Decode(&rev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if rev.FileName == "" {
		writeError(w, http.StatusBadRequest, "file_name is required")
		return
	}
	rev.ID = ""
	rev.Status = models.ReviewStatusDraft
	if err := s.store.CreateReview(r.Context(), &rev); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess := s.reviews.Start(rev.ID)
	writeJSON(w, http.StatusCreated, reviewResponse{Review: &rev, Session: sess})
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rev, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := reviewResponse{Review: rev}
	if sess, err := s.reviews.Get(id); err == nil {
		resp.Session = sess
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteReview(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	s.reviews.Discard(id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Session lifecycle ---

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetReview(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.reviews.Start(id))
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	s.reviews.Discard(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type ingestResponse struct {
	Session *engine.Session `json:"session"`
	engine.IngestResult
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	opts, ok := ingestOptions(w, r)
	if !ok {
		return
	}
	var payloads map[int]engine.Payload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sess, res, err := s.reviews.Ingest(r.PathValue("id"), payloads, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Session: sess, IngestResult: res})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil || s.text == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer not configured (set anthropic.api_key)")
		return
	}
	opts, ok := ingestOptions(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, err := s.reviews.Get(id); err != nil {
		writeEngineError(w, err)
		return
	}

	text, err := s.text.Text(r.Context(), id)
	if errors.Is(err, analyzer.ErrNoText) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payloads, err := s.analyzer.Analyze(r.Context(), text)
	if err != nil {
		log.Error().Err(err).Str("review_id", id).Msg("analysis failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	sess, res, err := s.reviews.Ingest(id, payloads, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Session: sess, IngestResult: res})
}

// --- Criterion operations ---

// applyOp runs op on the review's live session and writes the new snapshot.
func (s *Server) applyOp(w http.ResponseWriter, r *http.Request, name string, op engine.Operation) {
	sess, err := s.reviews.Apply(r.PathValue("id"), name, op)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Option string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.applyOp(w, r, "select_option", func(cur *engine.Session) (*engine.Session, error) {
		return engine.SelectOption(cur, cid, body.Option)
	})
}

func (s *Server) editField(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	var body struct {
		Value *string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.applyOp(w, r, "edit_field", func(cur *engine.Session) (*engine.Session, error) {
		return engine.EditField(cur, cid, key, body.Value)
	})
}

func (s *Server) toggleAuthority(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	s.applyOp(w, r, "toggle_authority", func(cur *engine.Session) (*engine.Session, error) {
		return engine.ToggleAuthorityResult(cur, cid)
	})
}

// updateAuthority applies any of result, reason and organization as one
// operation, so a partial failure leaves the session unchanged.
func (s *Server) updateAuthority(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Result       *models.AuthorityResult `json:"result"`
		Reason       *string                 `json:"reason"`
		Organization *string                 `json:"organization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Result == nil && body.Reason == nil && body.Organization == nil {
		writeError(w, http.StatusBadRequest, "one of result, reason or organization is required")
		return
	}
	s.applyOp(w, r, "update_authority", func(cur *engine.Session) (*engine.Session, error) {
		next := cur
		var err error
		if body.Result != nil {
			if next, err = engine.SetAuthorityResult(next, cid, *body.Result); err != nil {
				return nil, err
			}
		}
		if body.Reason != nil {
			if next, err = engine.EditAuthorityReason(next, cid, *body.Reason); err != nil {
				return nil, err
			}
		}
		if body.Organization != nil {
			if next, err = engine.SetAuthorityOrganization(next, cid, *body.Organization); err != nil {
				return nil, err
			}
		}
		return next, nil
	})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	s.applyOp(w, r, "verify", func(cur *engine.Session) (*engine.Session, error) {
		return engine.Verify(cur, cid)
	})
}

func (s *Server) setFeedback(w http.ResponseWriter, r *http.Request) {
	cid, ok := criterionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Feedback models.Feedback `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.applyOp(w, r, "set_feedback", func(cur *engine.Session) (*engine.Session, error) {
		return engine.SetFeedback(cur, cid, body.Feedback)
	})
}

// --- Save ---

func (s *Server) unverified(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reviews.Get(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	ids := engine.UnverifiedAuthorityCriteria(sess)
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"unverified": ids})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reviews.Get(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.BuildSaveRecords(sess))
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.reviews.Commit(r.Context(), r.PathValue("id"), body.Confirm, s.store)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if res.NeedsConfirmation {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetReview(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	records, err := s.store.ListRecords(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) listFeedbackLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetReview(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	logs, err := s.store.ListFeedbackLogs(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
