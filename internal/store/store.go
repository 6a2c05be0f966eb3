package store

import (
	"context"

	"github.com/joescharf/admit/internal/models"
)

// Store defines the persistence interface for admit.
type Store interface {
	// Reviews
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	ListReviews(ctx context.Context, status models.ReviewStatus) ([]*models.Review, error)
	DeleteReview(ctx context.Context, id string) error

	// Records
	SaveRecords(ctx context.Context, reviewID string, records []models.CriterionRecord) error
	ListRecords(ctx context.Context, reviewID string) ([]models.CriterionRecord, error)
	ListFeedbackLogs(ctx context.Context, reviewID string) ([]*models.FeedbackLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
