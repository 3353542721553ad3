package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

type dashboardRepository interface {
	CountUsersByRole(ctx context.Context, role models.UserRole) (int, error)
	CountActiveOfferings(ctx context.Context, tutorID string) (int, error)
	BookingsByStatus(ctx context.Context) (map[string]int, error)
	CompletedRevenue(ctx context.Context) (float64, error)
}

type dashboardBookingCounter interface {
	CountByTutorAndStatus(ctx context.Context, tutorID string, status models.BookingStatus) (int, error)
}

type dashboardAssignmentCounter interface {
	CountDueSoon(ctx context.Context, tutorID string, horizon time.Time) (int, error)
}

type dashboardRatingSummarizer interface {
	SummaryByTutor(ctx context.Context, tutorID string) (*models.TutorRatingSummary, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	DueSoonHorizon time.Duration
}

// DashboardService composes summary payloads for the admin and tutor views,
// served from cache when possible.
type DashboardService struct {
	repo        dashboardRepository
	bookings    dashboardBookingCounter
	assignments dashboardAssignmentCounter
	ratings     dashboardRatingSummarizer
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(repo dashboardRepository, bookings dashboardBookingCounter, assignments dashboardAssignmentCounter, ratings dashboardRatingSummarizer, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DueSoonHorizon <= 0 {
		cfg.DueSoonHorizon = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:        repo,
		bookings:    bookings,
		assignments: assignments,
		ratings:     ratings,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Admin returns the marketplace-wide summary and whether it came from cache.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	const cacheKey = "dashboard:admin"

	var cached models.AdminDashboard
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	students, err := s.repo.CountUsersByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count students")
	}
	tutors, err := s.repo.CountUsersByRole(ctx, models.RoleTutor)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count tutors")
	}
	offerings, err := s.repo.CountActiveOfferings(ctx, "")
	if err != nil {
		return nil, false, s.wrap(err, "failed to count offerings")
	}
	byStatus, err := s.repo.BookingsByStatus(ctx)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count bookings")
	}
	revenue, err := s.repo.CompletedRevenue(ctx)
	if err != nil {
		return nil, false, s.wrap(err, "failed to sum revenue")
	}

	dashboard := &models.AdminDashboard{
		TotalStudents:    students,
		TotalTutors:      tutors,
		ActiveOfferings:  offerings,
		BookingsByStatus: byStatus,
		CompletedRevenue: revenue,
		GeneratedAt:      s.now().UTC(),
	}
	s.cache.Set(ctx, cacheKey, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

// Tutor returns one tutor's workload summary and whether it came from cache.
func (s *DashboardService) Tutor(ctx context.Context, tutorID string) (*models.TutorDashboard, bool, error) {
	cacheKey := "dashboard:tutor:" + tutorID

	var cached models.TutorDashboard
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	pending, err := s.bookings.CountByTutorAndStatus(ctx, tutorID, models.BookingPending)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count pending requests")
	}
	active, err := s.bookings.CountByTutorAndStatus(ctx, tutorID, models.BookingOngoing)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count active bookings")
	}
	offerings, err := s.repo.CountActiveOfferings(ctx, tutorID)
	if err != nil {
		return nil, false, s.wrap(err, "failed to count offerings")
	}
	due, err := s.assignments.CountDueSoon(ctx, tutorID, s.now().UTC().Add(s.cfg.DueSoonHorizon))
	if err != nil {
		return nil, false, s.wrap(err, "failed to count assignments due")
	}
	summary, err := s.ratings.SummaryByTutor(ctx, tutorID)
	if err != nil {
		return nil, false, s.wrap(err, "failed to load rating summary")
	}

	dashboard := &models.TutorDashboard{
		TutorID:         tutorID,
		PendingRequests: pending,
		ActiveBookings:  active,
		ActiveOfferings: offerings,
		AssignmentsDue:  due,
		AverageRating:   summary.AverageScore,
		TotalRatings:    summary.TotalRatings,
		GeneratedAt:     s.now().UTC(),
	}
	s.cache.Set(ctx, cacheKey, dashboard, s.cfg.CacheTTL)
	return dashboard, false, nil
}

func (s *DashboardService) wrap(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, message)
}
