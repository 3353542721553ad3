package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorease/tutorease-api/internal/models"
)

// RatingRepository manages persistence for ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts a rating. A unique index on booking_id backs up the
// rate-exactly-once rule at the storage level.
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO ratings (id, booking_id, student_id, tutor_id, score, review, created_at)
		VALUES (:id, :booking_id, :student_id, :tutor_id, :score, :review, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// ExistsForBooking reports whether the booking was already rated.
func (r *RatingRepository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	const query = `SELECT 1 FROM ratings WHERE booking_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check rating: %w", err)
	}
	return true, nil
}

// ListByTutor returns a tutor's received ratings, newest first.
func (r *RatingRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.Rating, error) {
	const query = `SELECT id, booking_id, student_id, tutor_id, score, review, created_at FROM ratings WHERE tutor_id = $1 ORDER BY created_at DESC`
	var ratings []models.Rating
	if err := r.db.SelectContext(ctx, &ratings, query, tutorID); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

// SummaryByTutor aggregates a tutor's average score and rating count.
func (r *RatingRepository) SummaryByTutor(ctx context.Context, tutorID string) (*models.TutorRatingSummary, error) {
	const query = `SELECT $1 AS tutor_id, COALESCE(AVG(score), 0) AS average_score, COUNT(*) AS total_ratings FROM ratings WHERE tutor_id = $1`
	var summary models.TutorRatingSummary
	if err := r.db.GetContext(ctx, &summary, query, tutorID); err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return &summary, nil
}
