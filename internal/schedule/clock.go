// Package schedule implements the pure scheduling rules for tutor offerings:
// 12-hour clock parsing, day-of-week sets, minimum slot duration, and overlap
// detection across an individual tutor's published offerings. Everything here
// is wall-clock arithmetic; timezones are informational only and never
// consulted.
package schedule

import (
	"strconv"
	"strings"

	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// MinutesPerDay bounds the output of ParseClock.
const MinutesPerDay = 24 * 60

// ParseClock converts a 12-hour clock string such as "9:15 AM" into minutes
// since midnight. "12:00 AM" maps to 0 and "12:00 PM" to 720. An empty
// string means no time was selected and is reported as a missing field.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrMissingField, "time is required")
	}

	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "time must look like 9:15 AM")
	}

	period := strings.ToUpper(parts[1])
	if period != "AM" && period != "PM" {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "time must end with AM or PM")
	}

	hm := strings.Split(parts[0], ":")
	if len(hm) != 2 {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "time must look like 9:15 AM")
	}

	hours, err := strconv.Atoi(hm[0])
	if err != nil || hours < 1 || hours > 12 {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "hour must be between 1 and 12")
	}
	minutes, err := strconv.Atoi(hm[1])
	if err != nil || len(hm[1]) != 2 || minutes < 0 || minutes > 59 {
		return 0, appErrors.Clone(appErrors.ErrInvalidFormat, "minutes must be between 00 and 59")
	}

	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}

	return hours*60 + minutes, nil
}
