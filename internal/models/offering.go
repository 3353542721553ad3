package models

import (
	"time"

	"github.com/tutorease/tutorease-api/internal/schedule"
)

// SessionType distinguishes how lessons are delivered.
type SessionType string

const (
	SessionOnline   SessionType = "online"
	SessionPhysical SessionType = "physical"
)

// Offering is a tutor's published bundle of subject, grade, teaching days,
// and one or more bookable time ranges with a monthly fee. Days are stored
// as a bitmask; the timezone is informational only and all time comparisons
// are wall-clock.
type Offering struct {
	ID          string           `db:"id" json:"id"`
	TutorID     string           `db:"tutor_id" json:"tutor_id"`
	SubjectName string           `db:"subject_name" json:"subject_name"`
	GradeLevel  string           `db:"grade_level" json:"grade_level"`
	Days        schedule.DaySet  `db:"days_of_week" json:"-"`
	DayNames    []string         `db:"-" json:"days_of_week"`
	Fee         float64          `db:"fee" json:"fee"`
	Timezone    string           `db:"timezone" json:"timezone"`
	SessionType SessionType      `db:"session_type" json:"session_type"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	Active      bool             `db:"active" json:"active"`
	Version     int              `db:"version" json:"version"`
	Ranges      []OfferingRange  `db:"-" json:"time_ranges"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// OfferingRange is one concrete start/end pair inside an offering; it is the
// unit that gets individually booked. Times keep the submitted 12-hour
// labels verbatim.
type OfferingRange struct {
	ID         string `db:"id" json:"id"`
	OfferingID string `db:"offering_id" json:"-"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
	IsBooked   bool   `db:"is_booked" json:"is_booked"`
	Position   int    `db:"position" json:"-"`
}

// Normalize fills the JSON-facing day names from the stored bitmask.
func (o *Offering) Normalize() {
	o.DayNames = o.Days.Names()
}

// OfferingFilter captures search options for listing offerings.
type OfferingFilter struct {
	TutorID    string
	Subject    string
	GradeLevel string
	ActiveOnly bool
	Page       int
	PageSize   int
}
