package schedule

import (
	"strings"

	appErrors "github.com/tutorease/tutorease-api/pkg/errors"
)

// DaySet is a bitmask over the days of the week. Offerings store their
// teaching days as a DaySet so that the day-intersection gate in conflict
// checks is a single AND, rather than string comparisons.
type DaySet uint8

const (
	Monday DaySet = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayOrder = []struct {
	day  DaySet
	name string
}{
	{Monday, "Monday"},
	{Tuesday, "Tuesday"},
	{Wednesday, "Wednesday"},
	{Thursday, "Thursday"},
	{Friday, "Friday"},
	{Saturday, "Saturday"},
	{Sunday, "Sunday"},
}

// ParseDays builds a DaySet from weekday names. Unknown names are rejected.
func ParseDays(names []string) (DaySet, error) {
	var set DaySet
	for _, name := range names {
		matched := false
		for _, entry := range dayOrder {
			if strings.EqualFold(strings.TrimSpace(name), entry.name) {
				set |= entry.day
				matched = true
				break
			}
		}
		if !matched {
			return 0, appErrors.Clone(appErrors.ErrValidation, "unknown day of week: "+name)
		}
	}
	return set, nil
}

// Intersects reports whether two day sets share at least one day.
func (d DaySet) Intersects(other DaySet) bool {
	return d&other != 0
}

// Intersection returns the days shared by both sets.
func (d DaySet) Intersection(other DaySet) DaySet {
	return d & other
}

// Empty reports whether no day is selected.
func (d DaySet) Empty() bool {
	return d == 0
}

// Names returns the weekday names in Monday-first order.
func (d DaySet) Names() []string {
	var names []string
	for _, entry := range dayOrder {
		if d&entry.day != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

// String renders the set as a comma-separated list of weekday names.
func (d DaySet) String() string {
	return strings.Join(d.Names(), ", ")
}
