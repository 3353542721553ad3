package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AssignmentStatus enumerates the assignment lifecycle. unsubmitted is
// terminal; overdue exists only for legacy stored rows and is never
// produced by the API.
type AssignmentStatus string

const (
	AssignmentAssigned    AssignmentStatus = "assigned"
	AssignmentSubmitted   AssignmentStatus = "submitted"
	AssignmentCompleted   AssignmentStatus = "completed"
	AssignmentReviewed    AssignmentStatus = "reviewed"
	AssignmentUnsubmitted AssignmentStatus = "unsubmitted"
	AssignmentOverdue     AssignmentStatus = "overdue"
)

// Attachment references an uploaded file linked to an assignment or its
// submission.
type Attachment struct {
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Attachments is a JSONB-backed attachment list.
type Attachments []Attachment

// Value implements driver.Valuer for JSONB storage.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB retrieval.
func (a *Attachments) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("attachments: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Assignment is a tutor-issued task tied to one booking and one student.
type Assignment struct {
	ID                    string           `db:"id" json:"id"`
	BookingID             string           `db:"booking_id" json:"booking_id"`
	TutorID               string           `db:"tutor_id" json:"tutor_id"`
	StudentID             string           `db:"student_id" json:"student_id"`
	Title                 string           `db:"title" json:"title"`
	Description           string           `db:"description" json:"description"`
	DueDate               time.Time        `db:"due_date" json:"due_date"`
	Attachments           Attachments      `db:"attachments" json:"attachments"`
	Status                AssignmentStatus `db:"status" json:"status"`
	SubmissionRemarks     *string          `db:"submission_remarks" json:"submission_remarks,omitempty"`
	SubmissionAttachments Attachments      `db:"submission_attachments" json:"submission_attachments,omitempty"`
	SubmittedAt           *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	FeedbackContent       *string          `db:"feedback_content" json:"feedback_content,omitempty"`
	FeedbackGrade         *int             `db:"feedback_grade" json:"feedback_grade,omitempty"`
	FeedbackProvidedAt    *time.Time       `db:"feedback_provided_at" json:"feedback_provided_at,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter captures list options for assignments.
type AssignmentFilter struct {
	TutorID   string
	StudentID string
	BookingID string
	Status    string
	Page      int
	PageSize  int
}
