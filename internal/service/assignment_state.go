package service

import (
	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// AssignmentEvent names an assignment lifecycle trigger.
type AssignmentEvent string

const (
	EventSubmit        AssignmentEvent = "submit"
	EventMarkCompleted AssignmentEvent = "mark_completed"
	EventFeedback      AssignmentEvent = "feedback"
	EventSweep         AssignmentEvent = "sweep"
)

type assignmentTransition struct {
	from  models.AssignmentStatus
	event AssignmentEvent
}

// assignmentTransitions is the complete transition table. The sweep event
// fires once the due date passes: unsubmitted work becomes terminal, while
// submitted work is promoted to completed awaiting review. Feedback keeps a
// reviewed assignment reviewed so tutors can amend it.
var assignmentTransitions = map[assignmentTransition]models.AssignmentStatus{
	{models.AssignmentAssigned, EventSubmit}:         models.AssignmentSubmitted,
	{models.AssignmentSubmitted, EventMarkCompleted}: models.AssignmentCompleted,
	{models.AssignmentCompleted, EventFeedback}:      models.AssignmentReviewed,
	{models.AssignmentReviewed, EventFeedback}:       models.AssignmentReviewed,
	{models.AssignmentAssigned, EventSweep}:          models.AssignmentUnsubmitted,
	{models.AssignmentSubmitted, EventSweep}:         models.AssignmentCompleted,
}

// NextAssignmentStatus resolves the target status for an event applied to
// the current status. Premature feedback is reported distinctly.
func NextAssignmentStatus(current models.AssignmentStatus, event AssignmentEvent) (models.AssignmentStatus, error) {
	if next, ok := assignmentTransitions[assignmentTransition{current, event}]; ok {
		return next, nil
	}
	if event == EventFeedback {
		return "", appErrors.ErrNotReadyForFeedback
	}
	return "", appErrors.Clone(appErrors.ErrInvalidTransition,
		"cannot "+string(event)+" an assignment in status "+string(current))
}
