package service

import (
	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// BookingEvent names a booking lifecycle trigger.
type BookingEvent string

const (
	EventConfirm          BookingEvent = "confirm"
	EventStart            BookingEvent = "start"
	EventCancel           BookingEvent = "cancel"
	EventInitiatePayment  BookingEvent = "initiate_payment"
	EventPaymentConfirmed BookingEvent = "payment_confirmed"
	EventMarkPhysicalPaid BookingEvent = "mark_physical_paid"
	EventComplete         BookingEvent = "complete"
	EventExpire           BookingEvent = "expire"
	EventRate             BookingEvent = "rate"
)

type bookingTransition struct {
	from  models.BookingStatus
	event BookingEvent
}

// bookingTransitions is the complete transition table. Any (status, event)
// pair missing here is rejected; cancelled and rated have no outgoing
// entries and are therefore terminal. The payment gateway callback returns
// the booking to ongoing rather than completed; completion happens when the
// booked period ends.
var bookingTransitions = map[bookingTransition]models.BookingStatus{
	{models.BookingPending, EventConfirm}:                  models.BookingConfirmed,
	{models.BookingConfirmed, EventStart}:                  models.BookingOngoing,
	{models.BookingPending, EventCancel}:                   models.BookingCancelled,
	{models.BookingConfirmed, EventCancel}:                 models.BookingCancelled,
	{models.BookingOngoing, EventCancel}:                   models.BookingCancelled,
	{models.BookingOngoing, EventInitiatePayment}:          models.BookingPaymentPending,
	{models.BookingPaymentPending, EventPaymentConfirmed}:  models.BookingOngoing,
	{models.BookingOngoing, EventMarkPhysicalPaid}:         models.BookingOngoing,
	{models.BookingOngoing, EventComplete}:                 models.BookingCompleted,
	{models.BookingPending, EventExpire}:                   models.BookingCancelled,
	{models.BookingPaymentPending, EventExpire}:            models.BookingCancelled,
	{models.BookingCompleted, EventRate}:                   models.BookingRated,
}

// NextBookingStatus resolves the target status for an event applied to the
// current status. Rating an already rated booking is reported distinctly so
// callers can explain the failure.
func NextBookingStatus(current models.BookingStatus, event BookingEvent) (models.BookingStatus, error) {
	if next, ok := bookingTransitions[bookingTransition{current, event}]; ok {
		return next, nil
	}
	if current == models.BookingRated && event == EventRate {
		return "", appErrors.ErrAlreadyRated
	}
	return "", appErrors.Clone(appErrors.ErrInvalidTransition,
		"cannot "+string(event)+" a booking in status "+string(current))
}
