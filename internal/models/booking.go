package models

import "time"

// BookingStatus enumerates the booking lifecycle. cancelled and rated are
// terminal.
type BookingStatus string

const (
	BookingPending        BookingStatus = "pending"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingOngoing        BookingStatus = "ongoing"
	BookingPaymentPending BookingStatus = "paymentPending"
	BookingCompleted      BookingStatus = "completed"
	BookingRated          BookingStatus = "rated"
	BookingCancelled      BookingStatus = "cancelled"
)

// PaymentStatus tracks settlement of a booking's fee.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// Booking is a student's reservation of one specific offering range for a
// multi-month duration.
type Booking struct {
	ID                 string        `db:"id" json:"id"`
	StudentID          string        `db:"student_id" json:"student_id"`
	TutorID            string        `db:"tutor_id" json:"tutor_id"`
	OfferingID         string        `db:"offering_id" json:"offering_id"`
	RangeID            string        `db:"range_id" json:"range_id"`
	StartDate          time.Time     `db:"start_date" json:"start_date"`
	EndDate            time.Time     `db:"end_date" json:"end_date"`
	DurationMonths     int           `db:"duration_months" json:"duration_months"`
	Fee                float64       `db:"fee" json:"fee"`
	TotalAmount        float64       `db:"total_amount" json:"total_amount"`
	TeachingMode       SessionType   `db:"teaching_mode" json:"teaching_mode"`
	Status             BookingStatus `db:"status" json:"status"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	CancellationReason *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter captures list options for bookings.
type BookingFilter struct {
	StudentID string
	TutorID   string
	Status    string
	Page      int
	PageSize  int
}
