package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorease/tutorease-api/pkg/jobs"
)

type bookingSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

type assignmentSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

// SweeperConfig tunes the background lifecycle sweeper.
type SweeperConfig struct {
	Interval   time.Duration
	Workers    int
	MaxRetries int
}

const (
	sweepJobBookings    = "sweep_bookings"
	sweepJobAssignments = "sweep_assignments"
)

// SweeperService periodically resolves time-based lifecycle transitions:
// expired bookings are cancelled or completed and overdue assignments are
// closed out. Sweeps run through a worker queue so a slow database cannot
// stall the ticker.
type SweeperService struct {
	bookings    bookingSweeper
	assignments assignmentSweeper
	queue       *jobs.Queue
	metrics     *MetricsService
	logger      *zap.Logger
	interval    time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewSweeperService constructs a SweeperService.
func NewSweeperService(bookings bookingSweeper, assignments assignmentSweeper, metrics *MetricsService, logger *zap.Logger, cfg SweeperConfig) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	s := &SweeperService{
		bookings:    bookings,
		assignments: assignments,
		metrics:     metrics,
		logger:      logger,
		interval:    cfg.Interval,
	}
	s.queue = jobs.NewQueue("lifecycle-sweeper", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the ticker and worker pool. Safe to call once.
func (s *SweeperService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.queue.Start(ctx)
	go s.loop(ctx)
	s.started = true
	s.logger.Info("lifecycle sweeper started", zap.Duration("interval", s.interval))
}

// Stop halts the ticker and drains the workers.
func (s *SweeperService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.queue.Stop()
	s.logger.Info("lifecycle sweeper stopped")
}

// RunOnce enqueues an immediate sweep, used at startup and in admin tooling.
func (s *SweeperService) RunOnce() {
	s.enqueue(sweepJobBookings)
	s.enqueue(sweepJobAssignments)
}

func (s *SweeperService) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

func (s *SweeperService) enqueue(jobType string) {
	err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobType})
	if err != nil {
		s.logger.Warn("failed to enqueue sweep", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *SweeperService) handle(ctx context.Context, job jobs.Job) error {
	now := time.Now().UTC()
	switch job.Type {
	case sweepJobBookings:
		changed, err := s.bookings.SweepExpired(ctx, now)
		if err != nil {
			return err
		}
		s.metrics.RecordSweep("bookings", changed)
		if changed > 0 {
			s.logger.Info("booking sweep applied transitions", zap.Int("count", changed))
		}
		return nil
	case sweepJobAssignments:
		changed, err := s.assignments.SweepOverdue(ctx, now)
		if err != nil {
			return err
		}
		s.metrics.RecordSweep("assignments", changed)
		if changed > 0 {
			s.logger.Info("assignment sweep applied transitions", zap.Int("count", changed))
		}
		return nil
	default:
		return fmt.Errorf("unknown sweep job type %q", job.Type)
	}
}
