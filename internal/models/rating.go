package models

import "time"

// Rating is a student's one-time score for a completed booking.
type Rating struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	TutorID   string    `db:"tutor_id" json:"tutor_id"`
	Score     int       `db:"score" json:"score"`
	Review    *string   `db:"review" json:"review,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TutorRatingSummary aggregates a tutor's received ratings.
type TutorRatingSummary struct {
	TutorID      string  `db:"tutor_id" json:"tutor_id"`
	AverageScore float64 `db:"average_score" json:"average_score"`
	TotalRatings int     `db:"total_ratings" json:"total_ratings"`
}
