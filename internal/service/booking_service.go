package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorease/tutorease-api/internal/events"
	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type bookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	Create(ctx context.Context, booking *models.Booking) error
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, paymentStatus models.PaymentStatus, cancellationReason *string) (bool, error)
	ListExpired(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
	ListStale(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error)
}

type bookingOfferingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Offering, error)
	FindRange(ctx context.Context, rangeID string) (*models.OfferingRange, error)
	MarkRangeBooked(ctx context.Context, rangeID string) (bool, error)
	ReleaseRange(ctx context.Context, rangeID string) error
}

type bookingRatingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	ListByTutor(ctx context.Context, tutorID string) ([]models.Rating, error)
	SummaryByTutor(ctx context.Context, tutorID string) (*models.TutorRatingSummary, error)
}

// CreateBookingRequest reserves one offering range for a number of months.
type CreateBookingRequest struct {
	OfferingID     string `json:"offering_id" validate:"required"`
	RangeID        string `json:"range_id" validate:"required"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	DurationMonths int    `json:"duration_months" validate:"required,min=1"`
}

// RateBookingRequest records the student's one-time score for a booking.
type RateBookingRequest struct {
	Score  int     `json:"score" validate:"required,min=1,max=5"`
	Review *string `json:"review"`
}

// BookingServiceConfig tunes booking business rules at the service level.
type BookingServiceConfig struct {
	MaxDurationMonths int
}

// BookingService drives the booking lifecycle: reservation, confirmation,
// payment, cancellation, completion, and rating. Every status change is
// resolved through the transition table and applied with a status guard so
// racing requests cannot both win.
type BookingService struct {
	bookings  bookingRepository
	offerings bookingOfferingRepository
	ratings   bookingRatingRepository
	publisher eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
	config    BookingServiceConfig
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings bookingRepository, offerings bookingOfferingRepository, ratings bookingRatingRepository, publisher eventPublisher, validate *validator.Validate, logger *zap.Logger, config BookingServiceConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxDurationMonths <= 0 {
		config.MaxDurationMonths = 12
	}
	return &BookingService{
		bookings:  bookings,
		offerings: offerings,
		ratings:   ratings,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Get returns one booking, visible only to its parties and admins.
func (s *BookingService) Get(ctx context.Context, userID string, role models.UserRole, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && booking.StudentID != userID && booking.TutorID != userID {
		return nil, appErrors.ErrForbidden
	}
	return booking, nil
}

// List returns bookings scoped to the caller: students see their own,
// tutors see bookings against their offerings, admins see everything.
func (s *BookingService) List(ctx context.Context, userID string, role models.UserRole, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	switch role {
	case models.RoleStudent:
		filter.StudentID = userID
		filter.TutorID = ""
	case models.RoleTutor:
		filter.TutorID = userID
		filter.StudentID = ""
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create reserves an offering range for the student. The range is claimed
// with a compare-and-set so two students racing for the same slot cannot
// both succeed.
func (s *BookingService) Create(ctx context.Context, studentID string, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.DurationMonths > s.config.MaxDurationMonths {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking duration exceeds the maximum allowed")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be in YYYY-MM-DD format")
	}

	offering, err := s.offerings.FindByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load offering")
	}
	if !offering.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "offering is no longer available")
	}
	if offering.TutorID == studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot book your own offering")
	}

	rng, ok := findRange(offering.Ranges, req.RangeID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time range does not belong to this offering")
	}
	if rng.IsBooked {
		return nil, appErrors.Clone(appErrors.ErrSlotConflict, "time slot is already booked")
	}

	claimed, err := s.offerings.MarkRangeBooked(ctx, req.RangeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to reserve time slot")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrSlotConflict, "time slot was just booked by someone else")
	}

	booking := &models.Booking{
		StudentID:      studentID,
		TutorID:        offering.TutorID,
		OfferingID:     offering.ID,
		RangeID:        req.RangeID,
		StartDate:      startDate,
		EndDate:        startDate.AddDate(0, req.DurationMonths, 0),
		DurationMonths: req.DurationMonths,
		Fee:            offering.Fee,
		TotalAmount:    offering.Fee * float64(req.DurationMonths),
		TeachingMode:   offering.SessionType,
		Status:         models.BookingPending,
		PaymentStatus:  models.PaymentPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if releaseErr := s.offerings.ReleaseRange(ctx, req.RangeID); releaseErr != nil {
			s.logger.Error("failed to release range after booking create failure",
				zap.String("range_id", req.RangeID), zap.Error(releaseErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to create booking")
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeBookingRequested, booking.ID, booking)
	}
	return booking, nil
}

// Confirm accepts a pending booking request. Tutor only.
func (s *BookingService) Confirm(ctx context.Context, tutorID, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}
	booking, err = s.transition(ctx, booking, EventConfirm, booking.PaymentStatus, nil)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeBookingConfirmed, booking.ID, booking)
	}
	return booking, nil
}

// Start marks a confirmed booking as ongoing once lessons begin. Tutor only.
func (s *BookingService) Start(ctx context.Context, tutorID, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}
	return s.transition(ctx, booking, EventStart, booking.PaymentStatus, nil)
}

// Cancel withdraws a booking and frees its time slot. Either party may
// cancel; a reason is mandatory.
func (s *BookingService) Cancel(ctx context.Context, userID string, role models.UserRole, bookingID, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.ErrReasonRequired
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && booking.StudentID != userID && booking.TutorID != userID {
		return nil, appErrors.ErrForbidden
	}

	booking, err = s.transition(ctx, booking, EventCancel, booking.PaymentStatus, &reason)
	if err != nil {
		return nil, err
	}
	if err := s.offerings.ReleaseRange(ctx, booking.RangeID); err != nil {
		s.logger.Error("failed to release range after cancellation",
			zap.String("booking_id", booking.ID), zap.String("range_id", booking.RangeID), zap.Error(err))
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeBookingCancelled, booking.ID, booking)
	}
	return booking, nil
}

// InitiatePayment moves an ongoing online booking into the gateway flow.
// Student only; physical bookings are settled in person.
func (s *BookingService) InitiatePayment(ctx context.Context, studentID, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}
	if booking.TeachingMode != models.SessionOnline {
		return nil, appErrors.Clone(appErrors.ErrValidation, "physical bookings are paid in person")
	}
	return s.transition(ctx, booking, EventInitiatePayment, booking.PaymentStatus, nil)
}

// ConfirmPayment applies a successful gateway callback: the booking returns
// to ongoing with its payment settled.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, booking, EventPaymentConfirmed, models.PaymentCompleted, nil)
}

// MarkPhysicalPaid records in-person settlement of a physical booking.
// Tutor only.
func (s *BookingService) MarkPhysicalPaid(ctx context.Context, tutorID, bookingID string) (*models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.TutorID != tutorID {
		return nil, appErrors.ErrForbidden
	}
	if booking.TeachingMode != models.SessionPhysical {
		return nil, appErrors.Clone(appErrors.ErrValidation, "online bookings are settled through the payment gateway")
	}
	return s.transition(ctx, booking, EventMarkPhysicalPaid, models.PaymentCompleted, nil)
}

// Rate records the student's score for a completed booking, exactly once.
func (s *BookingService) Rate(ctx context.Context, studentID, bookingID string, req RateBookingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, appErrors.ErrForbidden
	}

	exists, err := s.ratings.ExistsForBooking(ctx, bookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to check existing rating")
	}
	if exists {
		return nil, appErrors.ErrAlreadyRated
	}

	booking, err = s.transition(ctx, booking, EventRate, booking.PaymentStatus, nil)
	if err != nil {
		return nil, err
	}

	rating := &models.Rating{
		BookingID: booking.ID,
		StudentID: booking.StudentID,
		TutorID:   booking.TutorID,
		Score:     req.Score,
		Review:    req.Review,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store rating")
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, events.TypeBookingRated, booking.ID, rating)
	}
	return rating, nil
}

// TutorRatings returns a tutor's received ratings with their aggregate, for
// profile pages.
func (s *BookingService) TutorRatings(ctx context.Context, tutorID string) ([]models.Rating, *models.TutorRatingSummary, error) {
	ratings, err := s.ratings.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list ratings")
	}
	summary, err := s.ratings.SummaryByTutor(ctx, tutorID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load rating summary")
	}
	return ratings, summary, nil
}

// SweepExpired cancels bookings that sat in pending or paymentPending past
// their start date, and completes ongoing bookings whose end date passed.
// Returns how many bookings changed.
func (s *BookingService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	changed := 0

	stale, err := s.bookings.ListStale(ctx, now, []models.BookingStatus{models.BookingPending, models.BookingPaymentPending})
	if err != nil {
		return changed, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list stale bookings")
	}
	reason := "expired without confirmation or payment"
	for _, booking := range stale {
		next, err := NextBookingStatus(booking.Status, EventExpire)
		if err != nil {
			continue
		}
		ok, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, next, booking.PaymentStatus, &reason)
		if err != nil {
			s.logger.Error("sweep: failed to expire booking", zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		changed++
		if err := s.offerings.ReleaseRange(ctx, booking.RangeID); err != nil {
			s.logger.Error("sweep: failed to release range", zap.String("booking_id", booking.ID), zap.Error(err))
		}
		if s.publisher != nil {
			s.publisher.Publish(ctx, events.TypeBookingCancelled, booking.ID, booking)
		}
	}

	ended, err := s.bookings.ListExpired(ctx, now, []models.BookingStatus{models.BookingOngoing})
	if err != nil {
		return changed, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list ended bookings")
	}
	for _, booking := range ended {
		ok, err := s.bookings.UpdateStatus(ctx, booking.ID, models.BookingOngoing, models.BookingCompleted, booking.PaymentStatus, nil)
		if err != nil {
			s.logger.Error("sweep: failed to complete booking", zap.String("booking_id", booking.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		changed++
		if err := s.offerings.ReleaseRange(ctx, booking.RangeID); err != nil {
			s.logger.Error("sweep: failed to release range", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}

	return changed, nil
}

func (s *BookingService) load(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load booking")
	}
	return booking, nil
}

// transition resolves the target status and applies it guarded by the
// current one. A guard miss means another request transitioned the booking
// first.
func (s *BookingService) transition(ctx context.Context, booking *models.Booking, event BookingEvent, paymentStatus models.PaymentStatus, reason *string) (*models.Booking, error) {
	next, err := NextBookingStatus(booking.Status, event)
	if err != nil {
		return nil, err
	}

	ok, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, next, paymentStatus, reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update booking")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "booking was updated by another request")
	}

	booking.Status = next
	booking.PaymentStatus = paymentStatus
	if reason != nil {
		booking.CancellationReason = reason
	}
	return booking, nil
}

func findRange(ranges []models.OfferingRange, rangeID string) (models.OfferingRange, bool) {
	for _, rng := range ranges {
		if rng.ID == rangeID {
			return rng, true
		}
	}
	return models.OfferingRange{}, false
}
