package models

import "time"

// AdminDashboard aggregates marketplace-wide figures for the admin view.
type AdminDashboard struct {
	TotalStudents    int            `json:"total_students"`
	TotalTutors      int            `json:"total_tutors"`
	ActiveOfferings  int            `json:"active_offerings"`
	BookingsByStatus map[string]int `json:"bookings_by_status"`
	CompletedRevenue float64        `json:"completed_revenue"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// TutorDashboard summarises one tutor's workload.
type TutorDashboard struct {
	TutorID          string    `json:"tutor_id"`
	PendingRequests  int       `json:"pending_requests"`
	ActiveBookings   int       `json:"active_bookings"`
	ActiveOfferings  int       `json:"active_offerings"`
	AssignmentsDue   int       `json:"assignments_due"`
	AverageRating    float64   `json:"average_rating"`
	TotalRatings     int       `json:"total_ratings"`
	GeneratedAt      time.Time `json:"generated_at"`
}
