package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/middleware"
	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/schedule"
	"github.com/tutorease/tutorease-api/internal/service"
)

type fakeOfferingRepo struct {
	offerings map[string]models.Offering
}

func (f *fakeOfferingRepo) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	if o, ok := f.offerings[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOfferingRepo) ListByTutor(ctx context.Context, tutorID string, activeOnly bool) ([]models.Offering, error) {
	var list []models.Offering
	for _, o := range f.offerings {
		if o.TutorID == tutorID {
			list = append(list, o)
		}
	}
	return list, nil
}

func (f *fakeOfferingRepo) Search(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error) {
	var list []models.Offering
	for _, o := range f.offerings {
		if o.Active {
			list = append(list, o)
		}
	}
	return list, len(list), nil
}

func (f *fakeOfferingRepo) Create(ctx context.Context, offering *models.Offering) error {
	if f.offerings == nil {
		f.offerings = make(map[string]models.Offering)
	}
	if offering.ID == "" {
		offering.ID = "off-new"
	}
	f.offerings[offering.ID] = *offering
	return nil
}

func (f *fakeOfferingRepo) UpdateWithVersion(ctx context.Context, offering *models.Offering, expectedVersion int) error {
	f.offerings[offering.ID] = *offering
	return nil
}

func (f *fakeOfferingRepo) Deactivate(ctx context.Context, id string) error {
	if o, ok := f.offerings[id]; ok {
		o.Active = false
		f.offerings[id] = o
	}
	return nil
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newOfferingTestHandler(repo *fakeOfferingRepo) *OfferingHandler {
	return NewOfferingHandler(service.NewOfferingService(repo, nil, nil, nil))
}

func offeringPayload() string {
	return `{
		"subject_name": "Mathematics",
		"grade_level": "10",
		"days_of_week": ["Monday", "Wednesday"],
		"time_ranges": [{"start_time": "9:00 AM", "end_time": "10:00 AM"}],
		"fee": 120,
		"timezone": "Asia/Kathmandu",
		"session_type": "online"
	}`
}

func TestOfferingHandlerCreateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOfferingTestHandler(&fakeOfferingRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/offerings", strings.NewReader(offeringPayload()))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOfferingHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeOfferingRepo{}
	handler := newOfferingTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/offerings", strings.NewReader(offeringPayload()))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "tutor-1", envelope.Data["tutor_id"])
	assert.ElementsMatch(t, []interface{}{"Monday", "Wednesday"}, envelope.Data["days_of_week"])
}

func TestOfferingHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeOfferingRepo{offerings: map[string]models.Offering{
		"off-1": {
			ID:      "off-1",
			TutorID: "tutor-1",
			Days:    schedule.Monday,
			Active:  true,
			Ranges: []models.OfferingRange{
				{ID: "range-1", StartTime: "9:30 AM", EndTime: "10:30 AM"},
			},
		},
	}}
	handler := newOfferingTestHandler(repo)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/offerings", strings.NewReader(offeringPayload()))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})

	handler.Create(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "SLOT_CONFLICT", envelope.Error["code"])
}

func TestOfferingHandlerCreateBadTimeFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOfferingTestHandler(&fakeOfferingRepo{})

	payload := strings.Replace(offeringPayload(), "9:00 AM", "09:00", 1)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/offerings", strings.NewReader(payload))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})

	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_FORMAT", envelope.Error["code"])
}

func TestOfferingHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newOfferingTestHandler(&fakeOfferingRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/offerings/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
