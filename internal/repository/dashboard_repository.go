package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tutorease/tutorease-api/internal/models"
)

// DashboardRepository runs the aggregate queries behind dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CountUsersByRole counts active accounts per role.
func (r *DashboardRepository) CountUsersByRole(ctx context.Context, role models.UserRole) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, role); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CountActiveOfferings counts published offerings, optionally per tutor.
func (r *DashboardRepository) CountActiveOfferings(ctx context.Context, tutorID string) (int, error) {
	query := `SELECT COUNT(*) FROM offerings WHERE active = TRUE`
	args := []interface{}{}
	if tutorID != "" {
		query += ` AND tutor_id = $1`
		args = append(args, tutorID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count offerings: %w", err)
	}
	return count, nil
}

// BookingsByStatus groups booking counts per status.
func (r *DashboardRepository) BookingsByStatus(ctx context.Context) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM bookings GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("bookings by status: %w", err)
	}
	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}

// CompletedRevenue sums the total amount of bookings with settled payments.
func (r *DashboardRepository) CompletedRevenue(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(total_amount), 0) FROM bookings WHERE payment_status = 'completed'`
	var total float64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("completed revenue: %w", err)
	}
	return total, nil
}
