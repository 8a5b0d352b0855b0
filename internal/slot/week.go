package slot

import (
	"fmt"
	"time"
)

type WeekMode int

const (
	ThisWeek        WeekMode = 0
	NextWeek        WeekMode = 1
	WeekAfterNext   WeekMode = 2
	DefaultWeekMode          = NextWeek
)

func ParseWeekMode(n int) (WeekMode, error) {
	m := WeekMode(n)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, n)
	}
	return m, nil
}

func (m WeekMode) Valid() bool {
	return m >= ThisWeek && m <= WeekAfterNext
}

func (m WeekMode) String() string {
	switch m {
	case ThisWeek:
		return "this-week"
	case NextWeek:
		return "next-week"
	case WeekAfterNext:
		return "week-after-next"
	default:
		return fmt.Sprintf("WeekMode(%d)", int(m))
	}
}

// start hour, end hour; an end of 24 rolls over to midnight of the next day.
var bandHours = map[Band][2]int{
	BandAM: {8, 13},
	BandPM: {13, 19},
	BandNT: {19, 24},
}

// Window returns the event start and end for id in the week selected by mode,
// counting weeks from the one containing today. Dates are computed in loc.
func (id ID) Window(mode WeekMode, today time.Time, loc *time.Location) (time.Time, time.Time) {
	today = today.In(loc)
	// time.Weekday has Sunday == 0; the board's week starts on Monday.
	offset := (int(today.Weekday()) + 6) % 7
	monday := time.Date(today.Year(), today.Month(), today.Day()-offset, 0, 0, 0, 0, loc)
	date := monday.AddDate(0, 0, 7*int(mode)+id.dayIndex())

	hours := bandHours[id.Band]
	start := time.Date(date.Year(), date.Month(), date.Day(), hours[0], 0, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), hours[1], 0, 0, 0, loc)
	return start, end
}
