package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/middleware"
	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/service"
)

type fakeBookingRepo struct {
	bookings map[string]models.Booking
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := f.bookings[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	var list []models.Booking
	for _, b := range f.bookings {
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.TutorID != "" && b.TutorID != filter.TutorID {
			continue
		}
		list = append(list, b)
	}
	return list, len(list), nil
}

func (f *fakeBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if f.bookings == nil {
		f.bookings = make(map[string]models.Booking)
	}
	if booking.ID == "" {
		booking.ID = "booking-new"
	}
	f.bookings[booking.ID] = *booking
	return nil
}

func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus, paymentStatus models.PaymentStatus, cancellationReason *string) (bool, error) {
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.PaymentStatus = paymentStatus
	b.CancellationReason = cancellationReason
	f.bookings[id] = b
	return true, nil
}

func (f *fakeBookingRepo) ListExpired(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) ListStale(ctx context.Context, now time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	return nil, nil
}

type fakeBookingOfferings struct {
	offerings map[string]models.Offering
	ranges    map[string]models.OfferingRange
	released  []string
}

func (f *fakeBookingOfferings) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	if o, ok := f.offerings[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingOfferings) FindRange(ctx context.Context, rangeID string) (*models.OfferingRange, error) {
	if r, ok := f.ranges[rangeID]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingOfferings) MarkRangeBooked(ctx context.Context, rangeID string) (bool, error) {
	r, ok := f.ranges[rangeID]
	if !ok || r.IsBooked {
		return false, nil
	}
	r.IsBooked = true
	f.ranges[rangeID] = r
	return true, nil
}

func (f *fakeBookingOfferings) ReleaseRange(ctx context.Context, rangeID string) error {
	f.released = append(f.released, rangeID)
	return nil
}

type fakeRatingRepo struct {
	exists  bool
	created *models.Rating
}

func (f *fakeRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	if rating.ID == "" {
		rating.ID = "rating-new"
	}
	f.created = rating
	return nil
}

func (f *fakeRatingRepo) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	return f.exists, nil
}

func (f *fakeRatingRepo) ListByTutor(ctx context.Context, tutorID string) ([]models.Rating, error) {
	if f.created != nil && f.created.TutorID == tutorID {
		return []models.Rating{*f.created}, nil
	}
	return nil, nil
}

func (f *fakeRatingRepo) SummaryByTutor(ctx context.Context, tutorID string) (*models.TutorRatingSummary, error) {
	list, _ := f.ListByTutor(ctx, tutorID)
	summary := &models.TutorRatingSummary{TutorID: tutorID, TotalRatings: len(list)}
	for _, rating := range list {
		summary.AverageScore += float64(rating.Score)
	}
	if len(list) > 0 {
		summary.AverageScore /= float64(len(list))
	}
	return summary, nil
}

func bookingHandlerFixtures(status models.BookingStatus) (*BookingHandler, *fakeBookingRepo, *fakeBookingOfferings) {
	bookings := &fakeBookingRepo{bookings: map[string]models.Booking{
		"booking-1": {
			ID:            "booking-1",
			StudentID:     "student-1",
			TutorID:       "tutor-1",
			OfferingID:    "off-1",
			RangeID:       "range-1",
			Status:        status,
			PaymentStatus: models.PaymentPending,
			TeachingMode:  models.SessionOnline,
			Fee:           120,
		},
	}}
	offerings := &fakeBookingOfferings{
		offerings: map[string]models.Offering{
			"off-1": {ID: "off-1", TutorID: "tutor-1", Fee: 120, Active: true, SessionType: models.SessionOnline},
		},
		ranges: map[string]models.OfferingRange{
			"range-1": {ID: "range-1", OfferingID: "off-1", StartTime: "9:00 AM", EndTime: "10:00 AM", IsBooked: true},
		},
	}
	svc := service.NewBookingService(bookings, offerings, &fakeRatingRepo{}, nil, nil, nil, service.BookingServiceConfig{})
	return NewBookingHandler(svc), bookings, offerings
}

func bookingTestContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestBookingHandlerCancelRequiresReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingPending)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/cancel", `{"reason": "  "}`,
		&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Cancel(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "REASON_REQUIRED", envelope.Error["code"])
}

func TestBookingHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, bookings, offerings := bookingHandlerFixtures(models.BookingPending)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/cancel", `{"reason": "schedule changed"}`,
		&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Cancel(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BookingCancelled, bookings.bookings["booking-1"].Status)
	assert.Equal(t, []string{"range-1"}, offerings.released)
}

func TestBookingHandlerCancelStranger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingPending)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/cancel", `{"reason": "not mine"}`,
		&models.JWTClaims{UserID: "student-2", Role: models.RoleStudent})

	handler.Cancel(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBookingHandlerConfirm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, bookings, _ := bookingHandlerFixtures(models.BookingPending)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/confirm", "",
		&models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})

	handler.Confirm(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BookingConfirmed, bookings.bookings["booking-1"].Status)
}

func TestBookingHandlerConfirmInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingCancelled)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/confirm", "",
		&models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})

	handler.Confirm(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_TRANSITION", envelope.Error["code"])
}

func TestBookingHandlerRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, bookings, _ := bookingHandlerFixtures(models.BookingCompleted)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/rate", `{"score": 5, "review": "great"}`,
		&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Rate(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.BookingRated, bookings.bookings["booking-1"].Status)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(5), envelope.Data["score"])
}

func TestBookingHandlerRateScoreOutOfRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingCompleted)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/rate", `{"score": 6}`,
		&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Rate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerTutorRatings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingCompleted)

	c, rec := bookingTestContext(http.MethodPost, "/bookings/booking-1/rate", `{"score": 4}`,
		&models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	handler.Rate(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tutors/tutor-1/ratings", nil)
	c.Params = gin.Params{{Key: "id", Value: "tutor-1"}}

	handler.TutorRatings(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.Rating        `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, 4, envelope.Data[0].Score)
	assert.Equal(t, float64(4), envelope.Meta["average_score"])
	assert.Equal(t, float64(1), envelope.Meta["total_ratings"])
}

func TestBookingHandlerListUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _, _ := bookingHandlerFixtures(models.BookingPending)

	c, rec := bookingTestContext(http.MethodGet, "/bookings", "", nil)

	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
