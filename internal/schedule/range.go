package schedule

import (
	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// MinSlotMinutes is the smallest allowed teaching slot.
const MinSlotMinutes = 45

// Range is one bookable time window inside an offering, carrying both the
// original 12-hour labels and their minute positions. Labels are preserved
// verbatim; no normalization is applied.
type Range struct {
	StartLabel string
	EndLabel   string
	Start      int
	End        int
	Booked     bool
}

// Overlaps reports whether two ranges collide. The predicate is deliberately
// inclusive at the boundary: a slot ending at minute 600 conflicts with one
// starting at minute 600, so back-to-back slots with no buffer are rejected.
func Overlaps(a, b Range) bool {
	return a.Start <= b.End && a.End >= b.Start
}

// ValidateRange parses and checks a proposed start/end pair. On success the
// returned Range keeps the submitted labels unchanged.
func ValidateRange(startTime, endTime string) (Range, error) {
	if startTime == "" || endTime == "" {
		return Range{}, appErrors.Clone(appErrors.ErrMissingField, "both start and end time are required")
	}

	start, err := ParseClock(startTime)
	if err != nil {
		return Range{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return Range{}, err
	}

	if end <= start {
		return Range{}, appErrors.ErrEndBeforeStart
	}
	if end-start < MinSlotMinutes {
		return Range{}, appErrors.ErrDurationTooShort
	}

	return Range{StartLabel: startTime, EndLabel: endTime, Start: start, End: end}, nil
}
