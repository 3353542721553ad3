package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// OfferingRepository manages persistence for offerings and their ranges.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs an OfferingRepository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

const offeringColumns = `id, tutor_id, subject_name, grade_level, days_of_week, fee, timezone, session_type, notes, active, version, created_at, updated_at`

// FindByID fetches one offering with its ranges.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	query := fmt.Sprintf(`SELECT %s FROM offerings WHERE id = $1`, offeringColumns)
	var offering models.Offering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	if err := r.attachRanges(ctx, []*models.Offering{&offering}); err != nil {
		return nil, err
	}
	offering.Normalize()
	return &offering, nil
}

// ListByTutor returns all of a tutor's offerings, optionally only active
// ones, with ranges attached. Used both for tutor dashboards and for
// conflict checking on create/edit.
func (r *OfferingRepository) ListByTutor(ctx context.Context, tutorID string, activeOnly bool) ([]models.Offering, error) {
	query := fmt.Sprintf(`SELECT %s FROM offerings WHERE tutor_id = $1`, offeringColumns)
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, tutorID); err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}

	refs := make([]*models.Offering, len(offerings))
	for i := range offerings {
		refs[i] = &offerings[i]
	}
	if err := r.attachRanges(ctx, refs); err != nil {
		return nil, err
	}
	for i := range offerings {
		offerings[i].Normalize()
	}
	return offerings, nil
}

// Search returns active offerings matching the filter along with a total
// count for pagination.
func (r *OfferingRepository) Search(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error) {
	base := "FROM offerings WHERE active = TRUE"
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(subject_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Subject)+"%")
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", offeringColumns, base, size, offset)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search offerings: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}

	refs := make([]*models.Offering, len(offerings))
	for i := range offerings {
		refs[i] = &offerings[i]
	}
	if err := r.attachRanges(ctx, refs); err != nil {
		return nil, 0, err
	}
	for i := range offerings {
		offerings[i].Normalize()
	}
	return offerings, total, nil
}

// Create inserts an offering together with its ranges in one transaction.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.Offering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	offering.CreatedAt = now
	offering.UpdatedAt = now
	offering.Version = 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create offering: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertOffering = `INSERT INTO offerings (id, tutor_id, subject_name, grade_level, days_of_week, fee, timezone, session_type, notes, active, version, created_at, updated_at)
		VALUES (:id, :tutor_id, :subject_name, :grade_level, :days_of_week, :fee, :timezone, :session_type, :notes, :active, :version, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertOffering, offering); err != nil {
		return fmt.Errorf("insert offering: %w", err)
	}

	if err := insertRanges(ctx, tx, offering); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateWithVersion rewrites an offering and its ranges guarded by an
// optimistic version check. Two concurrent edits of the same offering cannot
// both succeed: the second writer sees zero affected rows and gets a
// concurrent-modification error.
func (r *OfferingRepository) UpdateWithVersion(ctx context.Context, offering *models.Offering, expectedVersion int) error {
	offering.UpdatedAt = time.Now().UTC()
	offering.Version = expectedVersion + 1

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update offering: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE offerings
		SET subject_name = $1, grade_level = $2, days_of_week = $3, fee = $4, timezone = $5, session_type = $6, notes = $7, active = $8, version = $9, updated_at = $10
		WHERE id = $11 AND version = $12`
	result, err := tx.ExecContext(ctx, update,
		offering.SubjectName, offering.GradeLevel, offering.Days, offering.Fee,
		offering.Timezone, offering.SessionType, offering.Notes, offering.Active,
		offering.Version, offering.UpdatedAt, offering.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update offering: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update offering rows: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrConcurrentModification
	}

	// Booked ranges keep their identity across edits so bookings stay
	// attached; only unbooked ranges are rewritten.
	if _, err := tx.ExecContext(ctx, `DELETE FROM offering_ranges WHERE offering_id = $1 AND is_booked = FALSE`, offering.ID); err != nil {
		return fmt.Errorf("clear offering ranges: %w", err)
	}
	if err := insertRanges(ctx, tx, offering); err != nil {
		return err
	}

	return tx.Commit()
}

// Deactivate hides an offering from search without touching its bookings.
func (r *OfferingRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE offerings SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate offering: %w", err)
	}
	return nil
}

// FindRange fetches one bookable range.
func (r *OfferingRepository) FindRange(ctx context.Context, rangeID string) (*models.OfferingRange, error) {
	const query = `SELECT id, offering_id, start_time, end_time, is_booked, position FROM offering_ranges WHERE id = $1`
	var rng models.OfferingRange
	if err := r.db.GetContext(ctx, &rng, query, rangeID); err != nil {
		return nil, err
	}
	return &rng, nil
}

// MarkRangeBooked flips a range to booked only if it is currently free. It
// returns false when another booking won the race.
func (r *OfferingRepository) MarkRangeBooked(ctx context.Context, rangeID string) (bool, error) {
	const query = `UPDATE offering_ranges SET is_booked = TRUE WHERE id = $1 AND is_booked = FALSE`
	result, err := r.db.ExecContext(ctx, query, rangeID)
	if err != nil {
		return false, fmt.Errorf("mark range booked: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark range booked rows: %w", err)
	}
	return affected == 1, nil
}

// ReleaseRange frees a range after its booking is cancelled.
func (r *OfferingRepository) ReleaseRange(ctx context.Context, rangeID string) error {
	const query = `UPDATE offering_ranges SET is_booked = FALSE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, rangeID); err != nil {
		return fmt.Errorf("release range: %w", err)
	}
	return nil
}

func insertRanges(ctx context.Context, tx *sqlx.Tx, offering *models.Offering) error {
	const insertRange = `INSERT INTO offering_ranges (id, offering_id, start_time, end_time, is_booked, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position`
	for i := range offering.Ranges {
		rng := &offering.Ranges[i]
		if rng.ID == "" {
			rng.ID = uuid.NewString()
		}
		rng.OfferingID = offering.ID
		rng.Position = i
		if _, err := tx.ExecContext(ctx, insertRange, rng.ID, rng.OfferingID, rng.StartTime, rng.EndTime, rng.IsBooked, rng.Position); err != nil {
			return fmt.Errorf("insert offering range: %w", err)
		}
	}
	return nil
}

func (r *OfferingRepository) attachRanges(ctx context.Context, offerings []*models.Offering) error {
	if len(offerings) == 0 {
		return nil
	}
	ids := make([]string, len(offerings))
	index := make(map[string]*models.Offering, len(offerings))
	for i, offering := range offerings {
		ids[i] = offering.ID
		index[offering.ID] = offering
	}

	query, args, err := sqlx.In(`SELECT id, offering_id, start_time, end_time, is_booked, position FROM offering_ranges WHERE offering_id IN (?) ORDER BY position ASC`, ids)
	if err != nil {
		return fmt.Errorf("build ranges query: %w", err)
	}
	query = r.db.Rebind(query)

	var ranges []models.OfferingRange
	if err := r.db.SelectContext(ctx, &ranges, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load offering ranges: %w", err)
	}
	for _, rng := range ranges {
		if owner, ok := index[rng.OfferingID]; ok {
			owner.Ranges = append(owner.Ranges, rng)
		}
	}
	return nil
}
