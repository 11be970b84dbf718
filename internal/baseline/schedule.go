package baseline

import (
	"github.com/openmanage-kit/omevvctl/internal/omevv"
)

// DayAll expands to all seven weekday flags when present in the day set,
// regardless of which other tokens accompany it.
const DayAll = "all"

// WeekDays are the canonical day tokens accepted for schedules, matched
// case-sensitively.
var WeekDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// BuildSchedule turns a set of weekday tokens plus a time-of-day into a
// weekly schedule. A schedule is all-or-nothing: nil is returned unless both
// days and time are supplied. The time string is stored verbatim; format
// validation happens at the CLI boundary.
func BuildSchedule(days []string, timeOfDay string) *omevv.Schedule {
	if len(days) == 0 || timeOfDay == "" {
		return nil
	}

	selected := make(map[string]bool, len(days))
	for _, day := range days {
		selected[day] = true
	}

	if selected[DayAll] {
		return &omevv.Schedule{
			Monday:    true,
			Tuesday:   true,
			Wednesday: true,
			Thursday:  true,
			Friday:    true,
			Saturday:  true,
			Sunday:    true,
			Time:      timeOfDay,
		}
	}

	return &omevv.Schedule{
		Monday:    selected["monday"],
		Tuesday:   selected["tuesday"],
		Wednesday: selected["wednesday"],
		Thursday:  selected["thursday"],
		Friday:    selected["friday"],
		Saturday:  selected["saturday"],
		Sunday:    selected["sunday"],
		Time:      timeOfDay,
	}
}
