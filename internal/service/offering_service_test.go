package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/schedule"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type mockOfferingRepo struct {
	offerings   map[string]models.Offering
	created     *models.Offering
	updated     *models.Offering
	updateErr   error
	deactivated []string
}

func (m *mockOfferingRepo) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	if o, ok := m.offerings[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingRepo) ListByTutor(ctx context.Context, tutorID string, activeOnly bool) ([]models.Offering, error) {
	var list []models.Offering
	for _, o := range m.offerings {
		if o.TutorID != tutorID {
			continue
		}
		if activeOnly && !o.Active {
			continue
		}
		list = append(list, o)
	}
	return list, nil
}

func (m *mockOfferingRepo) Search(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error) {
	return nil, 0, nil
}

func (m *mockOfferingRepo) Create(ctx context.Context, offering *models.Offering) error {
	if m.offerings == nil {
		m.offerings = make(map[string]models.Offering)
	}
	if offering.ID == "" {
		offering.ID = "new-offering"
	}
	m.offerings[offering.ID] = *offering
	m.created = offering
	return nil
}

func (m *mockOfferingRepo) UpdateWithVersion(ctx context.Context, offering *models.Offering, expectedVersion int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.offerings[offering.ID] = *offering
	m.updated = offering
	return nil
}

func (m *mockOfferingRepo) Deactivate(ctx context.Context, id string) error {
	if o, ok := m.offerings[id]; ok {
		o.Active = false
		m.offerings[id] = o
	}
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockPublisher struct {
	events []string
}

func (m *mockPublisher) Publish(ctx context.Context, eventType, aggregateID string, payload interface{}) {
	m.events = append(m.events, eventType)
}

func mathOffering(id, tutorID string, booked bool) models.Offering {
	return models.Offering{
		ID:          id,
		TutorID:     tutorID,
		SubjectName: "Mathematics",
		GradeLevel:  "10",
		Days:        schedule.Monday | schedule.Wednesday,
		Fee:         120,
		Timezone:    "Asia/Kathmandu",
		SessionType: models.SessionOnline,
		Active:      true,
		Version:     1,
		Ranges: []models.OfferingRange{
			{ID: "range-1", OfferingID: id, StartTime: "9:00 AM", EndTime: "10:00 AM", IsBooked: booked},
		},
	}
}

func mathRequest() OfferingRequest {
	return OfferingRequest{
		SubjectName: "Mathematics",
		GradeLevel:  "10",
		DaysOfWeek:  []string{"Monday", "Wednesday"},
		TimeRanges:  []TimeRangeRequest{{StartTime: "9:00 AM", EndTime: "10:00 AM"}},
		Fee:         120,
		Timezone:    "Asia/Kathmandu",
		SessionType: "online",
	}
}

func TestOfferingCreate(t *testing.T) {
	repo := &mockOfferingRepo{}
	pub := &mockPublisher{}
	svc := NewOfferingService(repo, pub, nil, nil)

	offering, err := svc.Create(context.Background(), "tutor-1", mathRequest())
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", offering.TutorID)
	assert.True(t, offering.Active)
	require.Len(t, offering.Ranges, 1)
	assert.Equal(t, "9:00 AM", offering.Ranges[0].StartTime)
	assert.Contains(t, pub.events, "slot.created")
}

func TestOfferingCreateConflictsOnSharedDay(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", false),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	// Wednesday is shared and 9:30 overlaps the stored 9:00-10:00 range.
	req := mathRequest()
	req.SubjectName = "Physics"
	req.DaysOfWeek = []string{"Wednesday"}
	req.TimeRanges = []TimeRangeRequest{{StartTime: "9:30 AM", EndTime: "10:30 AM"}}

	_, err := svc.Create(context.Background(), "tutor-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSlotConflict))

	var conflict *schedule.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "off-1", conflict.OfferingID)
}

func TestOfferingCreateAllowsDisjointDays(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", false),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	req := mathRequest()
	req.DaysOfWeek = []string{"Tuesday", "Thursday"}

	_, err := svc.Create(context.Background(), "tutor-1", req)
	assert.NoError(t, err)
}

func TestOfferingCreateIgnoresOtherTutors(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-2", false),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), "tutor-1", mathRequest())
	assert.NoError(t, err)
}

func TestOfferingUpdateForbiddenForNonOwner(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", false),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), "tutor-2", "off-1", mathRequest())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestOfferingUpdateFrozenFieldsWhileBooked(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", true),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	req := mathRequest()
	req.Fee = 150

	_, err := svc.Update(context.Background(), "tutor-1", "off-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLockedByBooking))
}

func TestOfferingUpdateCannotDropBookedRange(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", true),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	req := mathRequest()
	req.TimeRanges = []TimeRangeRequest{{StartTime: "2:00 PM", EndTime: "3:00 PM"}}

	_, err := svc.Update(context.Background(), "tutor-1", "off-1", req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCannotModifyBooked))
}

func TestOfferingUpdateKeepsBookedRangeIdentity(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", true),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	// Resubmitting the booked range unchanged plus one new range is allowed.
	req := mathRequest()
	req.TimeRanges = []TimeRangeRequest{
		{StartTime: "9:00 AM", EndTime: "10:00 AM"},
		{StartTime: "2:00 PM", EndTime: "3:00 PM"},
	}

	updated, err := svc.Update(context.Background(), "tutor-1", "off-1", req)
	require.NoError(t, err)
	require.Len(t, updated.Ranges, 2)
	assert.Equal(t, "range-1", updated.Ranges[0].ID)
	assert.True(t, updated.Ranges[0].IsBooked)
	assert.False(t, updated.Ranges[1].IsBooked)
}

func TestOfferingUpdateSurfacesVersionConflict(t *testing.T) {
	repo := &mockOfferingRepo{
		offerings: map[string]models.Offering{"off-1": mathOffering("off-1", "tutor-1", false)},
		updateErr: appErrors.ErrConcurrentModification,
	}
	svc := NewOfferingService(repo, nil, nil, nil)

	_, err := svc.Update(context.Background(), "tutor-1", "off-1", mathRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConcurrentModification))
}

func TestOfferingDeactivateLockedWhileBooked(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", true),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	err := svc.Deactivate(context.Background(), "tutor-1", "off-1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrLockedByBooking))
	assert.Empty(t, repo.deactivated)
}

func TestOfferingDeactivate(t *testing.T) {
	repo := &mockOfferingRepo{offerings: map[string]models.Offering{
		"off-1": mathOffering("off-1", "tutor-1", false),
	}}
	svc := NewOfferingService(repo, nil, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "tutor-1", "off-1"))
	assert.Equal(t, []string{"off-1"}, repo.deactivated)
}
