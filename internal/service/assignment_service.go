package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	ListOverdue(ctx context.Context, now time.Time, statuses []models.AssignmentStatus) ([]models.Assignment, error)
}

type assignmentBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

// CreateAssignmentRequest issues a task against an ongoing booking.
type CreateAssignmentRequest struct {
	BookingID   string             `json:"booking_id" validate:"required"`
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description" validate:"required"`
	DueDate     time.Time          `json:"due_date" validate:"required"`
	Attachments models.Attachments `json:"attachments"`
}

// SubmitAssignmentRequest is the student's submission.
type SubmitAssignmentRequest struct {
	Remarks     *string            `json:"remarks"`
	Attachments models.Attachments `json:"attachments"`
}

// AssignmentFeedbackRequest is the tutor's review of completed work.
type AssignmentFeedbackRequest struct {
	Content string `json:"content" validate:"required"`
	Grade   *int   `json:"grade" validate:"omitempty,min=0,max=100"`
}

// AssignmentService drives the assignment lifecycle between a tutor and the
// student of one booking.
type AssignmentService struct {
	assignments assignmentRepository
	bookings    assignmentBookingRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepository, bookings assignmentBookingRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{assignments: assignments, bookings: bookings, validator: validate, logger: logger}
}

// Create issues a new assignment. Only the tutor of an ongoing booking can
// assign work, and the due date must be in the future.
func (s *AssignmentService) Create(ctx context.Context, tutorID string, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.DueDate.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
	}

	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load booking")
	}
	if booking.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}
	if booking.Status != models.BookingOngoing {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignments can only be issued for ongoing bookings")
	}

	assignment := &models.Assignment{
		BookingID:   booking.ID,
		TutorID:     booking.TutorID,
		StudentID:   booking.StudentID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		Attachments: req.Attachments,
		Status:      models.AssignmentAssigned,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Get returns one assignment, visible only to its parties and admins.
func (s *AssignmentService) Get(ctx context.Context, userID string, role models.UserRole, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && assignment.TutorID != userID && assignment.StudentID != userID {
		return nil, appErrors.ErrForbidden
	}
	return assignment, nil
}

// List returns assignments scoped to the caller.
func (s *AssignmentService) List(ctx context.Context, userID string, role models.UserRole, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	switch role {
	case models.RoleStudent:
		filter.StudentID = userID
		filter.TutorID = ""
	case models.RoleTutor:
		filter.TutorID = userID
		filter.StudentID = ""
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Submit records the student's work on an assigned task.
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID string, req SubmitAssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}

	next, err := NextAssignmentStatus(assignment.Status, EventSubmit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assignment.Status = next
	assignment.SubmissionRemarks = req.Remarks
	assignment.SubmissionAttachments = req.Attachments
	assignment.SubmittedAt = &now
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store submission")
	}
	return assignment, nil
}

// MarkCompleted closes a submitted assignment without feedback yet.
func (s *AssignmentService) MarkCompleted(ctx context.Context, tutorID, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}

	next, err := NextAssignmentStatus(assignment.Status, EventMarkCompleted)
	if err != nil {
		return nil, err
	}
	assignment.Status = next
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update assignment")
	}
	return assignment, nil
}

// ProvideFeedback reviews completed work. Feedback on a reviewed assignment
// replaces the previous review.
func (s *AssignmentService) ProvideFeedback(ctx context.Context, tutorID, assignmentID string, req AssignmentFeedbackRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	assignment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}

	next, err := NextAssignmentStatus(assignment.Status, EventFeedback)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assignment.Status = next
	assignment.FeedbackContent = &req.Content
	assignment.FeedbackGrade = req.Grade
	assignment.FeedbackProvidedAt = &now
	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store feedback")
	}
	return assignment, nil
}

// SweepOverdue resolves assignments whose due date passed: unsubmitted work
// becomes terminal, submitted work is promoted to completed. Returns how
// many assignments changed.
func (s *AssignmentService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.assignments.ListOverdue(ctx, now, []models.AssignmentStatus{models.AssignmentAssigned, models.AssignmentSubmitted})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list overdue assignments")
	}

	changed := 0
	for _, assignment := range overdue {
		next, err := NextAssignmentStatus(assignment.Status, EventSweep)
		if err != nil {
			continue
		}
		assignment.Status = next
		if err := s.assignments.Update(ctx, &assignment); err != nil {
			s.logger.Error("sweep: failed to update assignment", zap.String("assignment_id", assignment.ID), zap.Error(err))
			continue
		}
		changed++
	}
	return changed, nil
}

func (s *AssignmentService) load(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load assignment")
	}
	return assignment, nil
}
