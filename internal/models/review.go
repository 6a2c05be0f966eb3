package models

import "time"

// ReviewStatus represents the lifecycle of a review document.
type ReviewStatus string

const (
	ReviewStatusDraft ReviewStatus = "draft"
	ReviewStatusSaved ReviewStatus = "saved"
)

// Review is a complaint document entered into initial review.
type Review struct {
	ID        string       `json:"id"`
	FileName  string       `json:"file_name"`
	Status    ReviewStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	SavedAt   *time.Time   `json:"saved_at,omitempty"`
}

// FeedbackLog is one analyzer-versus-reviewer comparison row, kept for
// measuring analyzer accuracy.
type FeedbackLog struct {
	ID            int64     `json:"id"`
	ReviewID      string    `json:"review_id"`
	CriterionID   int       `json:"criterion_id"`
	FieldType     string    `json:"field_type"`
	AIValue       string    `json:"ai_value"`
	UserEdit      bool      `json:"user_edit"`
	UserValue     string    `json:"user_value"`
	ResultCorrect bool      `json:"result_correct"`
	CreatedAt     time.Time `json:"created_at"`
}
