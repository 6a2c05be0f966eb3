package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/admit/internal/analyzer"
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/engine"
	"github.com/joescharf/admit/internal/models"
)

type stubAnalyzer map[int]engine.Payload

func (s stubAnalyzer) Analyze(context.Context, string) (map[int]engine.Payload, error) {
	return s, nil
}

func strp(s string) *string { return &s }

func stubFindings() stubAnalyzer {
	return stubAnalyzer{
		2: {Authority: &engine.AuthorityPayload{Result: models.ResultApplicable, Reason: "within duties"}},
		4: {Fields: &engine.FieldsPayload{
			Status: models.StatusSuccess,
			Values: map[string]*string{"official": strp("Mr. A"), "entity": strp("City Hall"), "behavior": strp("bribery")},
		}},
	}
}

func newReviewWithText(t *testing.T, dir string) string {
	t.Helper()
	textFile := filepath.Join(dir, "complaint.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("complaint text"), 0644))

	reviewTextFile = textFile
	t.Cleanup(func() { reviewTextFile = "" })
	require.NoError(t, reviewNewRun(context.Background(), "complaint.pdf"))

	s, err := getStore()
	require.NoError(t, err)
	reviews, err := s.ListReviews(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	return reviews[0].ID
}

func TestReviewNew_StoresText(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)

	text, err := textSource().Text(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "complaint text", text)
	assert.Contains(t, testOut.String(), id)
}

func TestReviewList(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, reviewListRun(context.Background()))
	assert.Contains(t, testOut.String(), "No reviews")

	newReviewWithText(t, dir)
	require.NoError(t, reviewListRun(context.Background()))
	assert.Contains(t, testOut.String(), "complaint.pdf")

	reviewStatus = "archived"
	t.Cleanup(func() { reviewStatus = "" })
	assert.Error(t, reviewListRun(context.Background()))
}

func setAnalyzeFlags(t *testing.T, overwrite, confirm bool) {
	t.Helper()
	analyzeOverwrite, analyzeConfirm = overwrite, confirm
	t.Cleanup(func() { analyzeOverwrite, analyzeConfirm = false, false })
}

func TestAnalyzeRun_SavesFindings(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)
	s, err := getStore()
	require.NoError(t, err)
	ctx := context.Background()
	setAnalyzeFlags(t, false, true)

	err = analyzeRun(ctx, s, criteria.Default(), stubFindings(), textSource(), id)
	require.NoError(t, err)

	records, err := s.ListRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.False(t, records[0].Authority.IsVerified)

	r, err := s.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusSaved, r.Status)

	require.NoError(t, reviewShowRun(ctx, id))
	assert.Contains(t, testOut.String(), "within duties")
}

func TestAnalyzeRun_UnverifiedNeedsConfirmation(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)
	s, err := getStore()
	require.NoError(t, err)
	ctx := context.Background()

	err = analyzeRun(ctx, s, criteria.Default(), stubFindings(), textSource(), id)
	assert.ErrorIs(t, err, errSaveNotConfirmed)
	assert.Contains(t, testOut.String(), "[2]")

	records, err := s.ListRecords(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records)
	r, err := s.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusDraft, r.Status)
}

func TestAnalyzeRun_KeepsReviewerDecisions(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)
	s, err := getStore()
	require.NoError(t, err)
	ctx := context.Background()

	// A reviewer overrides and verifies criterion 2, then saves.
	m := engine.NewManager(criteria.Default())
	m.Start(id)
	_, _, err = m.Ingest(id, stubFindings(), engine.IngestOptions{})
	require.NoError(t, err)
	_, err = m.Apply(id, "toggle", func(cur *engine.Session) (*engine.Session, error) {
		return engine.ToggleAuthorityResult(cur, 2)
	})
	require.NoError(t, err)
	_, err = m.Apply(id, "verify", func(cur *engine.Session) (*engine.Session, error) {
		return engine.Verify(cur, 2)
	})
	require.NoError(t, err)
	res, err := m.Commit(ctx, id, false, s)
	require.NoError(t, err)
	require.True(t, res.Saved)

	setAnalyzeFlags(t, false, true)
	err = analyzeRun(ctx, s, criteria.Default(), stubFindings(), textSource(), id)
	assert.ErrorIs(t, err, errReviewSaved)

	records, err := s.ListRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.StatusFail, records[0].Status)
	assert.Equal(t, models.ResultNotApplicable, records[0].Authority.FinalResult)
	assert.True(t, records[0].Authority.IsOverridden)
	assert.True(t, records[0].Authority.IsVerified)

	setAnalyzeFlags(t, true, true)
	require.NoError(t, analyzeRun(ctx, s, criteria.Default(), stubFindings(), textSource(), id))
	records, err = s.ListRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.False(t, records[0].Authority.IsOverridden)
}

func TestAnalyzeRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)
	s, err := getStore()
	require.NoError(t, err)
	ctx := context.Background()

	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, analyzeRun(ctx, s, criteria.Default(), stubFindings(), textSource(), id))
	records, err := s.ListRecords(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalyzeRun_NoText(t *testing.T) {
	testEnv(t)
	require.NoError(t, reviewNewRun(context.Background(), "scan.pdf"))
	s, err := getStore()
	require.NoError(t, err)
	reviews, err := s.ListReviews(context.Background(), "")
	require.NoError(t, err)

	err = analyzeRun(context.Background(), s, criteria.Default(), stubFindings(), textSource(), reviews[0].ID)
	assert.ErrorIs(t, err, analyzer.ErrNoText)
}

func TestReviewDelete(t *testing.T) {
	dir := testEnv(t)
	id := newReviewWithText(t, dir)
	ctx := context.Background()

	require.NoError(t, reviewDeleteRun(ctx, id))
	_, err := os.Stat(textSource().Path(id))
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, reviewShowRun(ctx, id))
}

func TestCriteriaRun(t *testing.T) {
	testEnv(t)
	require.NoError(t, criteriaRun(criteria.Default()))
	out := testOut.String()
	assert.Contains(t, out, "within 5 years=success")
	assert.Contains(t, out, "applicable=fail")
	assert.Contains(t, out, "analyzer status")
}
