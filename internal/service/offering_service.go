package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorease/tutorease-api/internal/events"
	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/schedule"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type offeringRepository interface {
	FindByID(ctx context.Context, id string) (*models.Offering, error)
	ListByTutor(ctx context.Context, tutorID string, activeOnly bool) ([]models.Offering, error)
	Search(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error)
	Create(ctx context.Context, offering *models.Offering) error
	UpdateWithVersion(ctx context.Context, offering *models.Offering, expectedVersion int) error
	Deactivate(ctx context.Context, id string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType, aggregateID string, payload interface{})
}

// TimeRangeRequest is one submitted start/end pair.
type TimeRangeRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// OfferingRequest is the payload for creating or updating an offering.
type OfferingRequest struct {
	SubjectName string             `json:"subject_name" validate:"required"`
	GradeLevel  string             `json:"grade_level" validate:"required"`
	DaysOfWeek  []string           `json:"days_of_week" validate:"required,min=1"`
	TimeRanges  []TimeRangeRequest `json:"time_ranges" validate:"required,min=1,dive"`
	Fee         float64            `json:"fee" validate:"required,gt=0"`
	Timezone    string             `json:"timezone" validate:"required"`
	SessionType string             `json:"session_type" validate:"omitempty,oneof=online physical"`
	Notes       *string            `json:"notes"`
}

// OfferingService orchestrates offering publication and editing, including
// the conflict rules that keep one tutor's published ranges disjoint.
type OfferingService struct {
	repo      offeringRepository
	publisher eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService constructs an OfferingService.
func NewOfferingService(repo offeringRepository, publisher eventPublisher, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, publisher: publisher, validator: validate, logger: logger}
}

// Get returns one offering by id.
func (s *OfferingService) Get(ctx context.Context, id string) (*models.Offering, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load offering")
	}
	return offering, nil
}

// ListByTutor returns all offerings owned by a tutor.
func (s *OfferingService) ListByTutor(ctx context.Context, tutorID string) ([]models.Offering, error) {
	offerings, err := s.repo.ListByTutor(ctx, tutorID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list offerings")
	}
	return offerings, nil
}

// Search returns active offerings for student browsing.
func (s *OfferingService) Search(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, *models.Pagination, error) {
	offerings, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to search offerings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create validates and publishes a new offering for the tutor.
func (s *OfferingService) Create(ctx context.Context, tutorID string, req OfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	days, ranges, err := s.parseSubmission(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingTimes(ctx, tutorID, "")
	if err != nil {
		return nil, err
	}
	if err := schedule.CheckConflicts(schedule.OfferingTimes{Days: days, Ranges: ranges}, existing); err != nil {
		return nil, err
	}

	offering := &models.Offering{
		TutorID:     tutorID,
		SubjectName: req.SubjectName,
		GradeLevel:  req.GradeLevel,
		Days:        days,
		Fee:         req.Fee,
		Timezone:    req.Timezone,
		SessionType: models.SessionType(req.SessionType),
		Notes:       req.Notes,
		Active:      true,
	}
	for _, rng := range ranges {
		offering.Ranges = append(offering.Ranges, models.OfferingRange{
			StartTime: rng.StartLabel,
			EndTime:   rng.EndLabel,
		})
	}

	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to create offering")
	}
	offering.Normalize()

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeSlotCreated, offering.ID, offering)
	}
	return offering, nil
}

// Update edits an existing offering. While any range of the offering is
// booked, descriptive fields are frozen and booked ranges must be
// resubmitted unchanged. The write is guarded by the stored version so
// concurrent edits cannot both pass conflict checking.
func (s *OfferingService) Update(ctx context.Context, tutorID, offeringID string, req OfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	stored, err := s.repo.FindByID(ctx, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load offering")
	}
	if stored.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}

	days, ranges, err := s.parseSubmission(req)
	if err != nil {
		return nil, err
	}

	storedRanges, err := rangesFromModel(stored.Ranges)
	if err != nil {
		return nil, err
	}

	if hasBookedRange(stored.Ranges) {
		if err := s.checkFrozenFields(stored, req, days); err != nil {
			return nil, err
		}
		if err := schedule.CheckBookedPreserved(storedRanges, ranges); err != nil {
			return nil, err
		}
	}

	existing, err := s.existingTimes(ctx, tutorID, offeringID)
	if err != nil {
		return nil, err
	}
	if err := schedule.CheckConflicts(schedule.OfferingTimes{ID: offeringID, Days: days, Ranges: ranges}, existing); err != nil {
		return nil, err
	}

	updated := *stored
	updated.SubjectName = req.SubjectName
	updated.GradeLevel = req.GradeLevel
	updated.Days = days
	updated.Fee = req.Fee
	updated.Timezone = req.Timezone
	updated.SessionType = models.SessionType(req.SessionType)
	updated.Notes = req.Notes
	updated.Ranges = mergeRanges(stored.Ranges, ranges)

	if err := s.repo.UpdateWithVersion(ctx, &updated, stored.Version); err != nil {
		if appErrors.HasCode(err, appErrors.ErrConcurrentModification) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update offering")
	}
	updated.Normalize()

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeSlotUpdated, updated.ID, updated)
	}
	return &updated, nil
}

// Deactivate hides an offering from search. Offerings with booked ranges
// stay locked until their bookings conclude.
func (s *OfferingService) Deactivate(ctx context.Context, tutorID, offeringID string) error {
	stored, err := s.repo.FindByID(ctx, offeringID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load offering")
	}
	if stored.TutorID != tutorID {
		return appErrors.ErrForbidden
	}
	if hasBookedRange(stored.Ranges) {
		return appErrors.Clone(appErrors.ErrLockedByBooking, "offering has booked slots and cannot be removed")
	}
	if err := s.repo.Deactivate(ctx, offeringID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to deactivate offering")
	}
	return nil
}

func (s *OfferingService) parseSubmission(req OfferingRequest) (schedule.DaySet, []schedule.Range, error) {
	days, err := schedule.ParseDays(req.DaysOfWeek)
	if err != nil {
		return 0, nil, err
	}
	if days.Empty() {
		return 0, nil, appErrors.Clone(appErrors.ErrValidation, "at least one day is required")
	}

	ranges := make([]schedule.Range, 0, len(req.TimeRanges))
	for _, tr := range req.TimeRanges {
		rng, err := schedule.ValidateRange(tr.StartTime, tr.EndTime)
		if err != nil {
			return 0, nil, err
		}
		ranges = append(ranges, rng)
	}
	return days, ranges, nil
}

func (s *OfferingService) existingTimes(ctx context.Context, tutorID, excludeID string) ([]schedule.OfferingTimes, error) {
	offerings, err := s.repo.ListByTutor(ctx, tutorID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load existing offerings")
	}

	var result []schedule.OfferingTimes
	for _, offering := range offerings {
		if offering.ID == excludeID {
			continue
		}
		ranges, err := rangesFromModel(offering.Ranges)
		if err != nil {
			return nil, err
		}
		result = append(result, schedule.OfferingTimes{ID: offering.ID, Days: offering.Days, Ranges: ranges})
	}
	return result, nil
}

func (s *OfferingService) checkFrozenFields(stored *models.Offering, req OfferingRequest, days schedule.DaySet) error {
	if stored.SubjectName != req.SubjectName ||
		stored.GradeLevel != req.GradeLevel ||
		stored.Fee != req.Fee ||
		stored.Days != days ||
		stored.SessionType != models.SessionType(req.SessionType) ||
		!equalNotes(stored.Notes, req.Notes) {
		return appErrors.ErrLockedByBooking
	}
	return nil
}

func rangesFromModel(stored []models.OfferingRange) ([]schedule.Range, error) {
	ranges := make([]schedule.Range, 0, len(stored))
	for _, rng := range stored {
		parsed, err := schedule.ValidateRange(rng.StartTime, rng.EndTime)
		if err != nil {
			// Stored ranges were validated on write; a parse failure here
			// means corrupted data, not caller error.
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored time range is invalid")
		}
		parsed.Booked = rng.IsBooked
		ranges = append(ranges, parsed)
	}
	return ranges, nil
}

// mergeRanges keeps the identity of booked ranges across an edit so their
// bookings stay attached, and assigns fresh rows to everything else.
func mergeRanges(stored []models.OfferingRange, submitted []schedule.Range) []models.OfferingRange {
	bookedByTimes := make(map[[2]string]models.OfferingRange)
	for _, rng := range stored {
		if rng.IsBooked {
			bookedByTimes[[2]string{rng.StartTime, rng.EndTime}] = rng
		}
	}

	result := make([]models.OfferingRange, 0, len(submitted))
	for _, rng := range submitted {
		if existing, ok := bookedByTimes[[2]string{rng.StartLabel, rng.EndLabel}]; ok {
			result = append(result, existing)
			continue
		}
		result = append(result, models.OfferingRange{
			StartTime: rng.StartLabel,
			EndTime:   rng.EndLabel,
		})
	}
	return result
}

func hasBookedRange(ranges []models.OfferingRange) bool {
	for _, rng := range ranges {
		if rng.IsBooked {
			return true
		}
	}
	return false
}

func equalNotes(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
