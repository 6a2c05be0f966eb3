package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/models"
	"github.com/joescharf/admit/internal/store"
)

// ---------------------------------------------------------------------------
// Mock store
// ---------------------------------------------------------------------------

type mockStore struct {
	reviews        []*models.Review
	records        map[string][]models.CriterionRecord
	logs           map[string][]*models.FeedbackLog
	listReviewsErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		records: make(map[string][]models.CriterionRecord),
		logs:    make(map[string][]*models.FeedbackLog),
	}
}

func (m *mockStore) CreateReview(_ context.Context, r *models.Review) error {
	m.reviews = append(m.reviews, r)
	return nil
}

func (m *mockStore) GetReview(_ context.Context, id string) (*models.Review, error) {
	for _, r := range m.reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("review %w: %s", store.ErrNotFound, id)
}

func (m *mockStore) ListReviews(_ context.Context, status models.ReviewStatus) ([]*models.Review, error) {
	if m.listReviewsErr != nil {
		return nil, m.listReviewsErr
	}
	var out []*models.Review
	for _, r := range m.reviews {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteReview(_ context.Context, _ string) error { return nil }

func (m *mockStore) SaveRecords(_ context.Context, reviewID string, records []models.CriterionRecord) error {
	m.records[reviewID] = records
	return nil
}

func (m *mockStore) ListRecords(_ context.Context, reviewID string) ([]models.CriterionRecord, error) {
	return m.records[reviewID], nil
}

func (m *mockStore) ListFeedbackLogs(_ context.Context, reviewID string) ([]*models.FeedbackLog, error) {
	return m.logs[reviewID], nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(t *testing.T) (*Server, *mockStore) {
	t.Helper()
	ms := newMockStore()
	srv := NewServer(ms, criteria.Default(), "test")
	require.NotNil(t, srv)
	return srv, ms
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedReview(ms *mockStore, id string, status models.ReviewStatus) *models.Review {
	r := &models.Review{
		ID:        id,
		FileName:  id + ".pdf",
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	ms.reviews = append(ms.reviews, r)
	return r
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NotNil(t, srv.MCPServer(), "MCPServer() should return non-nil")
}

func TestHandleListReviews(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleListReviews(ctx, callToolReq("admit_list_reviews", nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "[]", resultText(t, result))

	seedReview(ms, "r-draft", models.ReviewStatusDraft)
	seedReview(ms, "r-saved", models.ReviewStatusSaved)

	result, err = srv.handleListReviews(ctx, callToolReq("admit_list_reviews", map[string]any{"status": "saved"}))
	require.NoError(t, err)
	var reviews []models.Review
	resultJSON(t, result, &reviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, "r-saved", reviews[0].ID)
}

func TestHandleListReviews_Errors(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleListReviews(ctx, callToolReq("admit_list_reviews", map[string]any{"status": "archived"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	ms.listReviewsErr = fmt.Errorf("db connection failed")
	result, err = srv.handleListReviews(ctx, callToolReq("admit_list_reviews", nil))
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "db connection failed")
}

func TestHandleReviewRecords(t *testing.T) {
	srv, ms := newTestServer(t)
	ctx := context.Background()

	seedReview(ms, "r1", models.ReviewStatusSaved)
	ms.records["r1"] = []models.CriterionRecord{
		{CriterionID: 2, Status: models.StatusFail, Reason: "outside duties"},
	}

	result, err := srv.handleReviewRecords(ctx, callToolReq("admit_review_records", map[string]any{"review_id": "r1"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out struct {
		Review  models.Review            `json:"review"`
		Records []models.CriterionRecord `json:"records"`
	}
	resultJSON(t, result, &out)
	assert.Equal(t, "r1", out.Review.ID)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "outside duties", out.Records[0].Reason)
}

func TestHandleReviewRecords_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.handleReviewRecords(ctx, callToolReq("admit_review_records", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "review_id")

	result, err = srv.handleReviewRecords(ctx, callToolReq("admit_review_records", map[string]any{"review_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "review not found")
}

func TestHandleFeedbackLogs(t *testing.T) {
	srv, ms := newTestServer(t)
	ms.logs["r1"] = []*models.FeedbackLog{{ReviewID: "r1", CriterionID: 4, FieldType: "date", UserEdit: true}}

	result, err := srv.handleFeedbackLogs(context.Background(), callToolReq("admit_feedback_logs", map[string]any{"review_id": "r1"}))
	require.NoError(t, err)
	var logs []models.FeedbackLog
	resultJSON(t, result, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "date", logs[0].FieldType)
}

func TestHandleListCriteria(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.handleListCriteria(context.Background(), callToolReq("admit_list_criteria", nil))
	require.NoError(t, err)

	var defs []criteria.Definition
	resultJSON(t, result, &defs)
	require.Len(t, defs, 8)
	assert.Equal(t, models.ShapeFields, defs[3].Shape)
	assert.Equal(t, models.StatusFail, defs[7].Outcomes[models.ResultApplicable])
}
