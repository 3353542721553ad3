package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

var allBookingStatuses = []models.BookingStatus{
	models.BookingPending,
	models.BookingConfirmed,
	models.BookingOngoing,
	models.BookingPaymentPending,
	models.BookingCompleted,
	models.BookingRated,
	models.BookingCancelled,
}

var allBookingEvents = []BookingEvent{
	EventConfirm,
	EventStart,
	EventCancel,
	EventInitiatePayment,
	EventPaymentConfirmed,
	EventMarkPhysicalPaid,
	EventComplete,
	EventExpire,
	EventRate,
}

func TestNextBookingStatusAllowedTransitions(t *testing.T) {
	cases := []struct {
		from  models.BookingStatus
		event BookingEvent
		want  models.BookingStatus
	}{
		{models.BookingPending, EventConfirm, models.BookingConfirmed},
		{models.BookingConfirmed, EventStart, models.BookingOngoing},
		{models.BookingPending, EventCancel, models.BookingCancelled},
		{models.BookingConfirmed, EventCancel, models.BookingCancelled},
		{models.BookingOngoing, EventCancel, models.BookingCancelled},
		{models.BookingOngoing, EventInitiatePayment, models.BookingPaymentPending},
		{models.BookingPaymentPending, EventPaymentConfirmed, models.BookingOngoing},
		{models.BookingOngoing, EventMarkPhysicalPaid, models.BookingOngoing},
		{models.BookingOngoing, EventComplete, models.BookingCompleted},
		{models.BookingPending, EventExpire, models.BookingCancelled},
		{models.BookingPaymentPending, EventExpire, models.BookingCancelled},
		{models.BookingCompleted, EventRate, models.BookingRated},
	}

	for _, tc := range cases {
		got, err := NextBookingStatus(tc.from, tc.event)
		require.NoError(t, err, "%s on %s", tc.event, tc.from)
		assert.Equal(t, tc.want, got, "%s on %s", tc.event, tc.from)
	}
}

// Every (status, event) pair not in the table must be rejected, so no code
// path can invent a transition.
func TestNextBookingStatusRejectsEverythingElse(t *testing.T) {
	for _, from := range allBookingStatuses {
		for _, event := range allBookingEvents {
			if _, ok := bookingTransitions[bookingTransition{from, event}]; ok {
				continue
			}
			_, err := NextBookingStatus(from, event)
			require.Error(t, err, "%s on %s must fail", event, from)
			if from == models.BookingRated && event == EventRate {
				assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyRated))
			} else {
				assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition), "%s on %s", event, from)
			}
		}
	}
}

func TestBookingTerminalStatusesHaveNoExits(t *testing.T) {
	for transition := range bookingTransitions {
		assert.NotEqual(t, models.BookingCancelled, transition.from, "cancelled must be terminal")
		assert.NotEqual(t, models.BookingRated, transition.from, "rated must be terminal")
	}
}
