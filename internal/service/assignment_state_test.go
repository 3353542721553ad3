package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorease/tutorease-api/internal/models"
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

var allAssignmentStatuses = []models.AssignmentStatus{
	models.AssignmentAssigned,
	models.AssignmentSubmitted,
	models.AssignmentCompleted,
	models.AssignmentReviewed,
	models.AssignmentUnsubmitted,
	models.AssignmentOverdue,
}

var allAssignmentEvents = []AssignmentEvent{
	EventSubmit,
	EventMarkCompleted,
	EventFeedback,
	EventSweep,
}

func TestNextAssignmentStatusAllowedTransitions(t *testing.T) {
	cases := []struct {
		from  models.AssignmentStatus
		event AssignmentEvent
		want  models.AssignmentStatus
	}{
		{models.AssignmentAssigned, EventSubmit, models.AssignmentSubmitted},
		{models.AssignmentSubmitted, EventMarkCompleted, models.AssignmentCompleted},
		{models.AssignmentCompleted, EventFeedback, models.AssignmentReviewed},
		{models.AssignmentReviewed, EventFeedback, models.AssignmentReviewed},
		{models.AssignmentAssigned, EventSweep, models.AssignmentUnsubmitted},
		{models.AssignmentSubmitted, EventSweep, models.AssignmentCompleted},
	}

	for _, tc := range cases {
		got, err := NextAssignmentStatus(tc.from, tc.event)
		require.NoError(t, err, "%s on %s", tc.event, tc.from)
		assert.Equal(t, tc.want, got, "%s on %s", tc.event, tc.from)
	}
}

func TestNextAssignmentStatusRejectsEverythingElse(t *testing.T) {
	for _, from := range allAssignmentStatuses {
		for _, event := range allAssignmentEvents {
			if _, ok := assignmentTransitions[assignmentTransition{from, event}]; ok {
				continue
			}
			_, err := NextAssignmentStatus(from, event)
			require.Error(t, err, "%s on %s must fail", event, from)
			if event == EventFeedback {
				assert.True(t, appErrors.HasCode(err, appErrors.ErrNotReadyForFeedback), "%s on %s", event, from)
			} else {
				assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition), "%s on %s", event, from)
			}
		}
	}
}

func TestAssignmentUnsubmittedIsTerminal(t *testing.T) {
	for transition := range assignmentTransitions {
		assert.NotEqual(t, models.AssignmentUnsubmitted, transition.from, "unsubmitted must be terminal")
	}
}
