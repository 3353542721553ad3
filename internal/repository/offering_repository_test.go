package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/models"
	"github.com/tutorease/tutorease-api/internal/schedule"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

func newOfferingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOfferingRepositoryMarkRangeBooked(t *testing.T) {
	db, mock, cleanup := newOfferingMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE offering_ranges SET is_booked = TRUE WHERE id = $1 AND is_booked = FALSE`)).
		WithArgs("range-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkRangeBooked(context.Background(), "range-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryMarkRangeBookedLosesRace(t *testing.T) {
	db, mock, cleanup := newOfferingMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	// The range was already booked by a concurrent request.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE offering_ranges SET is_booked = TRUE WHERE id = $1 AND is_booked = FALSE`)).
		WithArgs("range-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkRangeBooked(context.Background(), "range-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryUpdateWithVersionConflict(t *testing.T) {
	db, mock, cleanup := newOfferingMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	offering := &models.Offering{
		ID:          "offering-1",
		TutorID:     "tutor-1",
		SubjectName: "Mathematics",
		GradeLevel:  "10",
		Days:        schedule.Monday | schedule.Wednesday,
		Fee:         120,
		Timezone:    "Asia/Kathmandu",
		SessionType: models.SessionOnline,
		Active:      true,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE offerings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateWithVersion(context.Background(), offering, 3)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConcurrentModification))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryUpdateWithVersion(t *testing.T) {
	db, mock, cleanup := newOfferingMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	offering := &models.Offering{
		ID:          "offering-1",
		TutorID:     "tutor-1",
		SubjectName: "Mathematics",
		GradeLevel:  "10",
		Days:        schedule.Monday,
		Fee:         120,
		Timezone:    "Asia/Kathmandu",
		SessionType: models.SessionOnline,
		Active:      true,
		Ranges: []models.OfferingRange{
			{StartTime: "9:00 AM", EndTime: "10:00 AM"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE offerings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM offering_ranges WHERE offering_id = $1 AND is_booked = FALSE`)).
		WithArgs("offering-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO offering_ranges").
		WithArgs(sqlmock.AnyArg(), "offering-1", "9:00 AM", "10:00 AM", false, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateWithVersion(context.Background(), offering, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, offering.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
