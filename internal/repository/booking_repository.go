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

// BookingRepository manages persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, student_id, tutor_id, offering_id, range_id, start_date, end_date, duration_months, fee, total_amount, teaching_mode, status, payment_status, cancellation_reason, created_at, updated_at`

// FindByID fetches a booking by ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings matching the filter along with a total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", bookingColumns, base, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// Create inserts a new booking record.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, student_id, tutor_id, offering_id, range_id, start_date, end_date, duration_months, fee, total_amount, teaching_mode, status, payment_status, cancellation_reason, created_at, updated_at)
		VALUES (:id, :student_id, :tutor_id, :offering_id, :range_id, :start_date, :end_date, :duration_months, :fee, :total_amount, :teaching_mode, :status, :payment_status, :cancellation_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateStatus transitions a booking guarded by its current status, so two
// concurrent transitions of the same booking cannot both apply. It returns
// false when the guard did not match.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, paymentStatus models.PaymentStatus, cancellationReason *string) (bool, error) {
	const query = `UPDATE bookings
		SET status = $1, payment_status = $2, cancellation_reason = COALESCE($3, cancellation_reason), updated_at = $4
		WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, to, paymentStatus, cancellationReason, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status rows: %w", err)
	}
	return affected == 1, nil
}

// ListExpired returns bookings whose end date passed while still in one of
// the provided statuses. Used by the lifecycle sweeper.
func (r *BookingRepository) ListExpired(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM bookings WHERE end_date < ? AND status IN (?)`, bookingColumns), now, statuses)
	if err != nil {
		return nil, fmt.Errorf("build expired bookings query: %w", err)
	}
	query = r.db.Rebind(query)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list expired bookings: %w", err)
	}
	return bookings, nil
}

// ListStale returns bookings whose start date arrived while still awaiting
// confirmation or payment. Used by the lifecycle sweeper.
func (r *BookingRepository) ListStale(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM bookings WHERE start_date < ? AND status IN (?)`, bookingColumns), now, statuses)
	if err != nil {
		return nil, fmt.Errorf("build stale bookings query: %w", err)
	}
	query = r.db.Rebind(query)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list stale bookings: %w", err)
	}
	return bookings, nil
}

// CountByTutorAndStatus counts a tutor's bookings in one status.
func (r *BookingRepository) CountByTutorAndStatus(ctx context.Context, tutorID string, status models.BookingStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE tutor_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tutorID, status); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}
