package slot

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kst = time.FixedZone("KST", 9*60*60)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    ID
		wantErr bool
	}{
		{name: "morning first floor", in: "Mon-AM-1F", want: ID{Day: Mon, Band: BandAM, Floor: Floor1F}},
		{name: "night third floor", in: "Sun-NT-3F", want: ID{Day: Sun, Band: BandNT, Floor: Floor3F}},
		{name: "surrounding whitespace", in: " Wed-PM-1F\n", want: ID{Day: Wed, Band: BandPM, Floor: Floor1F}},
		{name: "unknown day", in: "Xyz-AM-1F", wantErr: true},
		{name: "unknown band", in: "Mon-EV-1F", wantErr: true},
		{name: "unknown floor", in: "Mon-AM-2F", wantErr: true},
		{name: "too few parts", in: "Mon-AM", wantErr: true},
		{name: "too many parts", in: "Mon-AM-1F-x", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "lower case", in: "mon-am-1f", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want.String(), got.String())
		})
	}
}

func TestID_AsJSONKey(t *testing.T) {
	in := map[ID]string{{Day: Tue, Band: BandPM, Floor: Floor3F}: "KW"}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Tue-PM-3F":"KW"}`, string(b))

	var out map[ID]string
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestParseWeekMode(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		m, err := ParseWeekMode(n)
		require.NoError(t, err)
		assert.Equal(t, WeekMode(n), m)
	}
	for _, n := range []int{-1, 3, 99} {
		_, err := ParseWeekMode(n)
		assert.ErrorIs(t, err, ErrInvalidMode)
	}
}

func TestWindow(t *testing.T) {
	// Thursday 2025-03-13.
	today := time.Date(2025, 3, 13, 15, 30, 0, 0, kst)

	cases := []struct {
		name      string
		id        string
		mode      WeekMode
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "this week, earlier weekday",
			id:        "Mon-AM-1F",
			mode:      ThisWeek,
			wantStart: time.Date(2025, 3, 10, 8, 0, 0, 0, kst),
			wantEnd:   time.Date(2025, 3, 10, 13, 0, 0, 0, kst),
		},
		{
			name:      "next week afternoon",
			id:        "Wed-PM-3F",
			mode:      NextWeek,
			wantStart: time.Date(2025, 3, 19, 13, 0, 0, 0, kst),
			wantEnd:   time.Date(2025, 3, 19, 19, 0, 0, 0, kst),
		},
		{
			name:      "night band ends at next midnight",
			id:        "Sun-NT-1F",
			mode:      NextWeek,
			wantStart: time.Date(2025, 3, 23, 19, 0, 0, 0, kst),
			wantEnd:   time.Date(2025, 3, 24, 0, 0, 0, 0, kst),
		},
		{
			name:      "week after next",
			id:        "Fri-AM-1F",
			mode:      WeekAfterNext,
			wantStart: time.Date(2025, 3, 28, 8, 0, 0, 0, kst),
			wantEnd:   time.Date(2025, 3, 28, 13, 0, 0, 0, kst),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Parse(tc.id)
			require.NoError(t, err)
			start, end := id.Window(tc.mode, today, kst)
			assert.True(t, tc.wantStart.Equal(start), "start: got %v want %v", start, tc.wantStart)
			assert.True(t, tc.wantEnd.Equal(end), "end: got %v want %v", end, tc.wantEnd)
		})
	}
}

func TestWindow_WeekAfterNextIsFourteenDaysPlusWeekdayDelta(t *testing.T) {
	for offset := 0; offset < 7; offset++ {
		today := time.Date(2025, 6, 2+offset, 9, 0, 0, 0, kst) // 2025-06-02 is a Monday
		for i, d := range Days {
			id := ID{Day: d, Band: BandAM, Floor: Floor1F}
			start, _ := id.Window(WeekAfterNext, today, kst)

			delta := i - ((int(today.Weekday()) + 6) % 7)
			want := time.Date(today.Year(), today.Month(), today.Day()+14+delta, 8, 0, 0, 0, kst)
			assert.True(t, want.Equal(start), "today=%s slot=%s: got %v want %v", today.Weekday(), id, start, want)
		}
	}
}

func TestWindow_ConvertsTodayIntoLocation(t *testing.T) {
	// 23:30 UTC Sunday is already Monday in Seoul.
	today := time.Date(2025, 3, 16, 23, 30, 0, 0, time.UTC)
	id := ID{Day: Mon, Band: BandAM, Floor: Floor1F}

	start, _ := id.Window(ThisWeek, today, kst)
	assert.True(t, time.Date(2025, 3, 17, 8, 0, 0, 0, kst).Equal(start))
}
