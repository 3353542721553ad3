package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

func TestValidateRange(t *testing.T) {
	r, err := ValidateRange("9:00 AM", "10:00 AM")
	require.NoError(t, err)
	assert.Equal(t, 540, r.Start)
	assert.Equal(t, 600, r.End)
	assert.Equal(t, "9:00 AM", r.StartLabel)
	assert.Equal(t, "10:00 AM", r.EndLabel)
}

func TestValidateRangeRejectsShortSlots(t *testing.T) {
	_, err := ValidateRange("9:00 AM", "9:30 AM")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDurationTooShort))

	// 44 minutes is still too short, 45 is the floor.
	_, err = ValidateRange("9:00 AM", "9:44 AM")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDurationTooShort))

	_, err = ValidateRange("9:00 AM", "9:45 AM")
	assert.NoError(t, err)
}

func TestValidateRangeRejectsInvertedSlots(t *testing.T) {
	_, err := ValidateRange("10:00 AM", "9:00 AM")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrEndBeforeStart))

	_, err = ValidateRange("9:00 AM", "9:00 AM")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrEndBeforeStart))
}

func TestValidateRangeRequiresBothTimes(t *testing.T) {
	_, err := ValidateRange("", "10:00 AM")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMissingField))

	_, err = ValidateRange("9:00 AM", "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrMissingField))
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := []struct {
		a, b Range
	}{
		{Range{Start: 0, End: 60}, Range{Start: 60, End: 120}},
		{Range{Start: 0, End: 60}, Range{Start: 90, End: 120}},
		{Range{Start: 540, End: 600}, Range{Start: 555, End: 615}},
		{Range{Start: 540, End: 720}, Range{Start: 570, End: 630}},
	}

	for _, tc := range cases {
		assert.Equal(t, Overlaps(tc.a, tc.b), Overlaps(tc.b, tc.a))
	}
}

func TestOverlapsCountsTouchingEndpoints(t *testing.T) {
	// Slots that merely touch at a shared endpoint conflict; back-to-back
	// sessions with no buffer are not allowed.
	a := Range{Start: 0, End: 60}
	b := Range{Start: 60, End: 120}
	assert.True(t, Overlaps(a, b))

	c := Range{Start: 61, End: 120}
	assert.False(t, Overlaps(a, c))
}
