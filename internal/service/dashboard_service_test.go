package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type mockDashboardRepo struct {
	students  int
	tutors    int
	offerings int
	byStatus  map[string]int
	revenue   float64
	calls     int
}

func (m *mockDashboardRepo) CountUsersByRole(ctx context.Context, role models.UserRole) (int, error) {
	m.calls++
	if role == models.RoleStudent {
		return m.students, nil
	}
	return m.tutors, nil
}

func (m *mockDashboardRepo) CountActiveOfferings(ctx context.Context, tutorID string) (int, error) {
	m.calls++
	return m.offerings, nil
}

func (m *mockDashboardRepo) BookingsByStatus(ctx context.Context) (map[string]int, error) {
	m.calls++
	return m.byStatus, nil
}

func (m *mockDashboardRepo) CompletedRevenue(ctx context.Context) (float64, error) {
	m.calls++
	return m.revenue, nil
}

type mockBookingCounter struct{ counts map[models.BookingStatus]int }

func (m *mockBookingCounter) CountByTutorAndStatus(ctx context.Context, tutorID string, status models.BookingStatus) (int, error) {
	return m.counts[status], nil
}

type mockAssignmentCounter struct{ due int }

func (m *mockAssignmentCounter) CountDueSoon(ctx context.Context, tutorID string, horizon time.Time) (int, error) {
	return m.due, nil
}

type mockRatingSummarizer struct{ summary models.TutorRatingSummary }

func (m *mockRatingSummarizer) SummaryByTutor(ctx context.Context, tutorID string) (*models.TutorRatingSummary, error) {
	return &m.summary, nil
}

// memoryCache is an in-process CacheRepository for tests.
type memoryCache struct {
	entries map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.entries = nil
	return nil
}

func newDashboardFixture() (*DashboardService, *mockDashboardRepo) {
	repo := &mockDashboardRepo{
		students:  40,
		tutors:    12,
		offerings: 18,
		byStatus:  map[string]int{"pending": 3, "ongoing": 7},
		revenue:   5400,
	}
	bookings := &mockBookingCounter{counts: map[models.BookingStatus]int{
		models.BookingPending: 3,
		models.BookingOngoing: 5,
	}}
	assignments := &mockAssignmentCounter{due: 4}
	ratings := &mockRatingSummarizer{summary: models.TutorRatingSummary{TutorID: "tutor-1", AverageScore: 4.5, TotalRatings: 11}}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, nil, true)
	svc := NewDashboardService(repo, bookings, assignments, ratings, cache, nil, DashboardServiceConfig{})
	return svc, repo
}

func TestDashboardAdminCaching(t *testing.T) {
	svc, repo := newDashboardFixture()

	dashboard, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 40, dashboard.TotalStudents)
	assert.Equal(t, 12, dashboard.TotalTutors)
	assert.Equal(t, 5400.0, dashboard.CompletedRevenue)
	firstCalls := repo.calls

	dashboard, cached, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 40, dashboard.TotalStudents)
	assert.Equal(t, firstCalls, repo.calls, "cache hit must not touch the repository")
}

func TestDashboardTutor(t *testing.T) {
	svc, _ := newDashboardFixture()

	dashboard, cached, err := svc.Tutor(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, dashboard.PendingRequests)
	assert.Equal(t, 5, dashboard.ActiveBookings)
	assert.Equal(t, 4, dashboard.AssignmentsDue)
	assert.Equal(t, 4.5, dashboard.AverageRating)

	_, cached, err = svc.Tutor(context.Background(), "tutor-1")
	require.NoError(t, err)
	assert.True(t, cached)
}
