package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/admit/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer; a single connection
	// serializes access and avoids "database is locked" under HTTP load.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Reviews ---

const reviewColumns = `id, file_name, status, created_at, updated_at, saved_at`

func scanReview(row interface{ Scan(...any) error }) (*models.Review, error) {
	r := &models.Review{}
	var savedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.FileName, &r.Status, &r.CreatedAt, &r.UpdatedAt, &savedAt); err != nil {
		return nil, err
	}
	if savedAt.Valid {
		t := savedAt.Time
		r.SavedAt = &t
	}
	return r, nil
}

func (s *SQLiteStore) CreateReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.Status == "" {
		r.Status = models.ReviewStatusDraft
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, file_name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.FileName, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review %w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, status models.ReviewStatus) ([]*models.Review, error) {
	var rows *sql.Rows
	var err error
	if status != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+reviewColumns+` FROM reviews WHERE status = ? ORDER BY created_at DESC, id DESC`, status)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStore) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("review %w: %s", ErrNotFound, id)
	}
	return nil
}

// --- Records ---

// SaveRecords replaces the review's record set and feedback logs in one
// transaction and marks the review saved. Concurrent saves resolve as last
// writer wins.
func (s *SQLiteStore) SaveRecords(ctx context.Context, reviewID string, records []models.CriterionRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE reviews SET status = ?, saved_at = ?, updated_at = ? WHERE id = ?`,
		models.ReviewStatusSaved, now, now, reviewID)
	if err != nil {
		return fmt.Errorf("mark review saved: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("review %w: %s", ErrNotFound, reviewID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM criterion_records WHERE review_id = ?`, reviewID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feedback_logs WHERE review_id = ?`, reviewID); err != nil {
		return fmt.Errorf("clear feedback logs: %w", err)
	}

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", rec.CriterionID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO criterion_records (review_id, criterion_id, position, status, payload, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
			reviewID, rec.CriterionID, i, rec.Status, string(payload), now,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.CriterionID, err)
		}
	}

	logs, err := feedbackLogs(records)
	if err != nil {
		return err
	}
	for _, l := range logs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feedback_logs (review_id, criterion_id, field_type, ai_value, user_edit, user_value, result_correct, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			reviewID, l.CriterionID, l.FieldType, l.AIValue, boolToInt(l.UserEdit), l.UserValue, boolToInt(l.ResultCorrect), now,
		); err != nil {
			return fmt.Errorf("insert feedback log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, reviewID string) ([]models.CriterionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM criterion_records WHERE review_id = ? ORDER BY position`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []models.CriterionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec models.CriterionRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListFeedbackLogs(ctx context.Context, reviewID string) ([]*models.FeedbackLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, review_id, criterion_id, field_type, ai_value, user_edit, user_value, result_correct, created_at
		FROM feedback_logs WHERE review_id = ? ORDER BY id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list feedback logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*models.FeedbackLog
	for rows.Next() {
		l := &models.FeedbackLog{}
		if err := rows.Scan(&l.ID, &l.ReviewID, &l.CriterionID, &l.FieldType, &l.AIValue, &l.UserEdit, &l.UserValue, &l.ResultCorrect, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
