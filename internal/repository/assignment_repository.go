package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorease/tutorease-api/internal/models"
)

// AssignmentRepository manages persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, booking_id, tutor_id, student_id, title, description, due_date, attachments, status, submission_remarks, submission_attachments, submitted_at, feedback_content, feedback_grade, feedback_provided_at, created_at, updated_at`

// FindByID fetches an assignment by ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List returns assignments matching the filter along with a total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base := "FROM assignments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.BookingID != "" {
		conditions = append(conditions, fmt.Sprintf("booking_id = $%d", len(args)+1))
		args = append(args, filter.BookingID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY due_date ASC LIMIT %d OFFSET %d", assignmentColumns, base, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// Create inserts a new assignment record.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	const query = `INSERT INTO assignments (id, booking_id, tutor_id, student_id, title, description, due_date, attachments, status, created_at, updated_at)
		VALUES (:id, :booking_id, :tutor_id, :student_id, :title, :description, :due_date, :attachments, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update rewrites the mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments
		SET title = :title, description = :description, due_date = :due_date, attachments = :attachments,
			status = :status, submission_remarks = :submission_remarks, submission_attachments = :submission_attachments,
			submitted_at = :submitted_at, feedback_content = :feedback_content, feedback_grade = :feedback_grade,
			feedback_provided_at = :feedback_provided_at, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// ListOverdue returns assignments whose due date has passed while still in
// one of the provided statuses. Used by the lifecycle sweeper.
func (r *AssignmentRepository) ListOverdue(ctx context.Context, now time.Time, statuses []models.AssignmentStatus) ([]models.Assignment, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM assignments WHERE due_date < ? AND status IN (?)`, assignmentColumns), now, statuses)
	if err != nil {
		return nil, fmt.Errorf("build overdue assignments query: %w", err)
	}
	query = r.db.Rebind(query)

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list overdue assignments: %w", err)
	}
	return assignments, nil
}

// CountDueSoon counts a tutor's open assignments due before the horizon.
func (r *AssignmentRepository) CountDueSoon(ctx context.Context, tutorID string, horizon time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE tutor_id = $1 AND due_date < $2 AND status IN ('assigned', 'submitted')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tutorID, horizon); err != nil {
		return 0, fmt.Errorf("count due assignments: %w", err)
	}
	return count, nil
}
