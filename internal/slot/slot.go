// Package slot models the bookable unit of the board: a day, a time band and
// a floor, plus the week offset used to turn a slot into concrete timestamps.
package slot

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed slot")
var ErrInvalidMode = errors.New("invalid week mode")

type Day string

const (
	Mon Day = "Mon"
	Tue Day = "Tue"
	Wed Day = "Wed"
	Thu Day = "Thu"
	Fri Day = "Fri"
	Sat Day = "Sat"
	Sun Day = "Sun"
)

// Days in board order; the index is the offset from Monday.
var Days = []Day{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

type Band string

const (
	BandAM Band = "AM"
	BandPM Band = "PM"
	BandNT Band = "NT"
)

var Bands = []Band{BandAM, BandPM, BandNT}

type Floor string

const (
	Floor1F Floor = "1F"
	Floor3F Floor = "3F"
)

var Floors = []Floor{Floor1F, Floor3F}

// ID is the key used by both the pending and confirmed maps.
type ID struct {
	Day   Day
	Band  Band
	Floor Floor
}

func (id ID) String() string {
	return string(id.Day) + "-" + string(id.Band) + "-" + string(id.Floor)
}

// MarshalText lets an ID be used as a JSON object key.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse reads the "Day-Band-Floor" wire form, e.g. "Mon-AM-1F".
func Parse(s string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return New(parts[0], parts[1], parts[2])
}

// New validates each component separately; the manual-add form submits them
// as distinct fields.
func New(day, band, floor string) (ID, error) {
	id := ID{Day: Day(day), Band: Band(band), Floor: Floor(floor)}
	if id.dayIndex() < 0 {
		return ID{}, fmt.Errorf("%w: unknown day %q", ErrMalformed, day)
	}
	if _, ok := bandHours[id.Band]; !ok {
		return ID{}, fmt.Errorf("%w: unknown band %q", ErrMalformed, band)
	}
	if !validFloor(id.Floor) {
		return ID{}, fmt.Errorf("%w: unknown floor %q", ErrMalformed, floor)
	}
	return id, nil
}

func (id ID) dayIndex() int {
	for i, d := range Days {
		if d == id.Day {
			return i
		}
	}
	return -1
}

func validFloor(f Floor) bool {
	for _, v := range Floors {
		if v == f {
			return true
		}
	}
	return false
}
