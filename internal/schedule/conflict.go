package schedule

import (
	"fmt"

	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// OfferingTimes is the scheduling view of one offering: its identity, its
// teaching days, and its time ranges.
type OfferingTimes struct {
	ID     string
	Days   DaySet
	Ranges []Range
}

// ConflictError describes the first collision found between a candidate
// range and an already published one.
type ConflictError struct {
	OfferingID string
	SharedDays DaySet
	Candidate  Range
	Existing   Range
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot %s - %s overlaps with an existing slot (%s - %s) on %s",
		e.Candidate.StartLabel, e.Candidate.EndLabel,
		e.Existing.StartLabel, e.Existing.EndLabel,
		e.SharedDays)
}

// Unwrap ties the conflict to the SLOT_CONFLICT domain error so that
// callers and the HTTP layer can classify it.
func (e *ConflictError) Unwrap() error {
	return appErrors.ErrSlotConflict
}

// CheckSelfConsistent rejects a candidate whose own ranges overlap each
// other, before any comparison with other offerings.
func CheckSelfConsistent(ranges []Range) error {
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if Overlaps(ranges[i], ranges[j]) {
				return &ConflictError{
					Candidate: ranges[j],
					Existing:  ranges[i],
				}
			}
		}
	}
	return nil
}

// CheckConflicts decides whether the candidate offering can be inserted
// alongside a tutor's existing offerings. Ranges of two offerings are only
// compared when the offerings share at least one teaching day; when editing,
// the caller must exclude the offering being edited from existing.
func CheckConflicts(candidate OfferingTimes, existing []OfferingTimes) error {
	if err := CheckSelfConsistent(candidate.Ranges); err != nil {
		return err
	}

	for _, other := range existing {
		shared := candidate.Days.Intersection(other.Days)
		if shared.Empty() {
			continue
		}
		for _, candidateRange := range candidate.Ranges {
			for _, existingRange := range other.Ranges {
				if Overlaps(candidateRange, existingRange) {
					return &ConflictError{
						OfferingID: other.ID,
						SharedDays: shared,
						Candidate:  candidateRange,
						Existing:   existingRange,
					}
				}
			}
		}
	}
	return nil
}

// CheckBookedPreserved enforces the edit-time lock: every booked range of
// the stored offering must reappear in the submitted ranges with identical
// start and end labels.
func CheckBookedPreserved(stored, submitted []Range) error {
	for _, old := range stored {
		if !old.Booked {
			continue
		}
		found := false
		for _, next := range submitted {
			if next.StartLabel == old.StartLabel && next.EndLabel == old.EndLabel {
				found = true
				break
			}
		}
		if !found {
			return appErrors.Clone(appErrors.ErrCannotModifyBooked,
				fmt.Sprintf("booked slot %s - %s cannot be changed or removed", old.StartLabel, old.EndLabel))
		}
	}
	return nil
}
