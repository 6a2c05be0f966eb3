package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/admit/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }

func createReview(t *testing.T, s *SQLiteStore, name string) *models.Review {
	t.Helper()
	r := &models.Review{FileName: name}
	require.NoError(t, s.CreateReview(context.Background(), r))
	return r
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Review CRUD ---

func TestReviewCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := createReview(t, s, "complaint-001.pdf")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.ReviewStatusDraft, r.Status)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "complaint-001.pdf", got.FileName)
	assert.Equal(t, models.ReviewStatusDraft, got.Status)
	assert.Nil(t, got.SavedAt)

	createReview(t, s, "complaint-002.pdf")
	all, err := s.ListReviews(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteReview(ctx, r.ID))
	_, err = s.GetReview(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReview_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetReview(context.Background(), "nonexistent")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestDeleteReview_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteReview(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReviews_FilterByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := createReview(t, s, "a.pdf")
	createReview(t, s, "b.pdf")
	require.NoError(t, s.SaveRecords(ctx, saved.ID, nil))

	drafts, err := s.ListReviews(ctx, models.ReviewStatusDraft)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "b.pdf", drafts[0].FileName)

	done, err := s.ListReviews(ctx, models.ReviewStatusSaved)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, saved.ID, done[0].ID)
	assert.NotNil(t, done[0].SavedAt)
}

// --- Records ---

func sampleRecords() []models.CriterionRecord {
	date := models.NewField(strp("2024-01-01")).WithValue(strp("2024-02-01"))
	return []models.CriterionRecord{
		{
			CriterionID: 2,
			Status:      models.StatusSuccess,
			Reason:      "within scope",
			Authority: &models.AuthorityFinding{
				AIResult:    models.ResultApplicable,
				AIReason:    "within scope",
				FinalResult: models.ResultApplicable,
				FinalReason: "within scope",
				IsVerified:  true,
			},
		},
		{
			CriterionID:    3,
			Status:         models.StatusSuccess,
			SelectedOption: strp("within 5 years"),
		},
		{
			CriterionID: 4,
			Status:      models.StatusSuccess,
			Fields: &models.FieldFinding{
				Status: models.StatusSuccess,
				Fields: map[string]models.Field{
					"behavior": models.NewField(strp("bribery")),
					"date":     date,
				},
			},
		},
		{
			CriterionID: 8,
			Status:      models.StatusSuccess,
			Reason:       "not handled elsewhere",
			Organization: "Election Commission",
			Feedback:     models.FeedbackDisagree,
			Authority: &models.AuthorityFinding{
				AIResult:          models.ResultApplicable,
				AIReason:          "handled elsewhere",
				AIOrganization:    "Ombudsman",
				FinalResult:       models.ResultNotApplicable,
				FinalReason:       "not handled elsewhere",
				FinalOrganization: "Election Commission",
				IsOverridden:      true,
			},
		},
	}
}

func TestSaveRecords_RoundTripInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := createReview(t, s, "a.pdf")

	records := sampleRecords()
	require.NoError(t, s.SaveRecords(ctx, r.ID, records))

	got, err := s.ListRecords(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	rev, err := s.GetReview(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusSaved, rev.Status)
	require.NotNil(t, rev.SavedAt)
}

func TestSaveRecords_ReplacesPreviousSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := createReview(t, s, "a.pdf")

	require.NoError(t, s.SaveRecords(ctx, r.ID, sampleRecords()))
	require.NoError(t, s.SaveRecords(ctx, r.ID, sampleRecords()[:1]))

	got, err := s.ListRecords(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].CriterionID)

	logs, err := s.ListFeedbackLogs(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "authority_result", logs[0].FieldType)
}

func TestSaveRecords_UnknownReview(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveRecords(context.Background(), "nonexistent", sampleRecords())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRecords_FeedbackLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := createReview(t, s, "a.pdf")
	require.NoError(t, s.SaveRecords(ctx, r.ID, sampleRecords()))

	logs, err := s.ListFeedbackLogs(ctx, r.ID)
	require.NoError(t, err)

	type row struct {
		criterion int
		field     string
		aiValue   string
		edited    bool
		userValue string
		correct   bool
	}
	var got []row
	for _, l := range logs {
		assert.Equal(t, r.ID, l.ReviewID)
		got = append(got, row{l.CriterionID, l.FieldType, l.AIValue, l.UserEdit, l.UserValue, l.ResultCorrect})
	}

	assert.Equal(t, []row{
		{2, "authority_result", "applicable", false, "", true},
		{3, "manual_selection", "", true, "within 5 years", true},
		{4, "behavior", "bribery", false, "", true},
		{4, "date", "2024-01-01", true, "2024-02-01", false},
		{8, "authority_result", "applicable", true, "not_applicable", false},
		{8, "authority_reason", "handled elsewhere", true, "not handled elsewhere", false},
		{8, "authority_organization", "Ombudsman", true, "Election Commission", false},
	}, got)
}

func TestFeedbackLogs_AuthorityTextEdits(t *testing.T) {
	records := []models.CriterionRecord{{
		CriterionID:  7,
		Status:       models.StatusFail,
		Reason:       "court case pending",
		Organization: "Provincial Court",
		Feedback:     models.FeedbackAgree,
		Authority: &models.AuthorityFinding{
			AIResult:          models.ResultApplicable,
			AIReason:          "court case",
			AIOrganization:    "Court",
			FinalResult:       models.ResultApplicable,
			FinalReason:       "court case pending",
			FinalOrganization: "Provincial Court",
			IsVerified:        true,
		},
	}}

	logs, err := feedbackLogs(records)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, "authority_result", logs[0].FieldType)
	assert.True(t, logs[0].ResultCorrect)

	for _, l := range logs[1:] {
		assert.True(t, l.UserEdit, l.FieldType)
		assert.False(t, l.ResultCorrect, l.FieldType)
	}
	assert.Equal(t, "authority_reason", logs[1].FieldType)
	assert.Equal(t, "court case pending", logs[1].UserValue)
	assert.Equal(t, "authority_organization", logs[2].FieldType)
	assert.Equal(t, "Court", logs[2].AIValue)
	assert.Equal(t, "Provincial Court", logs[2].UserValue)
}

func TestDeleteReview_CascadesRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := createReview(t, s, "a.pdf")
	require.NoError(t, s.SaveRecords(ctx, r.ID, sampleRecords()))

	require.NoError(t, s.DeleteReview(ctx, r.ID))

	records, err := s.ListRecords(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	logs, err := s.ListFeedbackLogs(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
