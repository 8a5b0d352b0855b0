package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/session"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

type okCalendar struct{}

func (okCalendar) Authorize(context.Context) error { return nil }

func (okCalendar) InsertEvent(_ context.Context, ev calendar.Event) (calendar.EventRef, error) {
	return calendar.EventRef{ID: ev.Description}, nil
}

type failCalendar struct{}

func (failCalendar) Authorize(context.Context) error { return nil }

func (failCalendar) InsertEvent(context.Context, calendar.Event) (calendar.EventRef, error) {
	return calendar.EventRef{}, calendar.ErrInsert
}

func newTestServer(t *testing.T, admin string) *httptest.Server {
	t.Helper()
	return newTestServerWith(t, admin, okCalendar{})
}

func newTestServerWith(t *testing.T, admin string, cal calendar.Inserter) *httptest.Server {
	t.Helper()
	dir, err := directory.New(map[string]string{"Alice": "ALC", "Bob": "BOB", "Admin": "ADM"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := session.New(ctx, session.Config{
		Directory:   dir,
		Calendar:    cal,
		CalendarIDs: map[string]string{"1F": "cal-1f", "3F": "cal-3f"},
		Admin:       admin,
		WeekMode:    slot.NextWeek,
		Shuffle:     func([]string) {},
	})

	srv := httptest.NewServer(SetupRoutes(Deps{
		Session:   s,
		Directory: dir,
		Admin:     admin,
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/"+user, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg map[string]any
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestStartRound_NoParticipants(t *testing.T) {
	srv := newTestServer(t, "Admin")

	code, body := post(t, srv.URL+"/start_round", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body["status"])
	assert.NotEmpty(t, body["message"])
}

func TestRoundClaimAndCommit(t *testing.T) {
	srv := newTestServer(t, "Admin")
	alice := dial(t, srv, "Alice")

	first := readUntil(t, alice, "initial_state")
	assert.Equal(t, map[string]any{}, first["reserved"])
	assert.Equal(t, "WAITING", readUntil(t, alice, "turn_update")["user"])
	assert.EqualValues(t, 1, readUntil(t, alice, "week_mode_update")["week_mode"])

	code, body := post(t, srv.URL+"/start_round", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "round started", body["status"])
	assert.Equal(t, []any{"Alice"}, body["turn_order"])
	assert.Equal(t, "Alice", readUntil(t, alice, "turn_update")["user"])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, alice.Write(ctx, websocket.MessageText, []byte("Mon-AM-1F")))

	claimed := readUntil(t, alice, "slot_update")
	assert.Equal(t, "Mon-AM-1F", claimed["slotId"])
	assert.Equal(t, "ALC", claimed["initial"])
	assert.Equal(t, "ROUND_END", readUntil(t, alice, "turn_update")["user"])

	code, body = post(t, srv.URL+"/commit_calendar", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["committed_count"])
	committed := readUntil(t, alice, "calendar_committed")
	assert.Equal(t, map[string]any{"Mon-AM-1F": "ALC"}, committed["committed_data"])

	code, body = post(t, srv.URL+"/commit_calendar", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body["status"])

	code, body = post(t, srv.URL+"/reset_session", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]any{}, readUntil(t, alice, "initial_state")["reserved"])
}

func TestClaimErrorIsUnicast(t *testing.T) {
	srv := newTestServer(t, "Admin")
	alice := dial(t, srv, "Alice")
	readUntil(t, alice, "week_mode_update")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, alice.Write(ctx, websocket.MessageText, []byte("Mon-AM-1F")))
	msg := readUntil(t, alice, "error")
	assert.NotEmpty(t, msg["message"])
}

func TestWebsocket_RejectsUnknownUser(t *testing.T) {
	srv := newTestServer(t, "Admin")
	conn := dial(t, srv, "Mallory")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestWebsocket_RejectsDuplicate(t *testing.T) {
	srv := newTestServer(t, "Admin")
	first := dial(t, srv, "Alice")
	readUntil(t, first, "week_mode_update")

	second := dial(t, srv, "Alice")
	msg := readUntil(t, second, "error")
	assert.NotEmpty(t, msg["message"])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := second.Read(ctx)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))

	// The first connection is still live.
	code, _ := post(t, srv.URL+"/set_week_mode/0", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, readUntil(t, first, "week_mode_update")["week_mode"])
}

func TestSetWeekMode(t *testing.T) {
	srv := newTestServer(t, "Admin")

	cases := []struct {
		mode     string
		wantCode int
	}{
		{"0", http.StatusOK},
		{"2", http.StatusOK},
		{"3", http.StatusBadRequest},
		{"-1", http.StatusBadRequest},
		{"next", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			code, body := post(t, srv.URL+"/set_week_mode/"+tc.mode, "")
			assert.Equal(t, tc.wantCode, code)
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, tc.mode, jsonNumber(body["week_mode"]))
			} else {
				assert.Equal(t, "error", body["status"])
			}
		})
	}
}

func jsonNumber(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestManualAdd(t *testing.T) {
	srv := newTestServer(t, "Admin")
	url := srv.URL + "/admin/manual_add"

	code, body := post(t, url, `{"name":"Bob","day":"Fri","time":"PM","floor":"1F"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Fri-PM-1F", body["slot_id"])
	assert.Equal(t, "BOB", body["initial"])

	cases := []struct {
		name string
		body string
	}{
		{"taken", `{"name":"Alice","day":"Fri","time":"PM","floor":"1F"}`},
		{"bad day", `{"name":"Alice","day":"Fun","time":"PM","floor":"1F"}`},
		{"unknown name", `{"name":"Mallory","day":"Sat","time":"PM","floor":"1F"}`},
		{"not json", `name=Alice`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := post(t, url, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestManualAdd_NoAdminConfigured(t *testing.T) {
	srv := newTestServer(t, "")
	code, body := post(t, srv.URL+"/admin/manual_add", `{"name":"Bob","day":"Fri","time":"PM","floor":"1F"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body["status"])
}

func TestManualAdd_CalendarFailure(t *testing.T) {
	srv := newTestServerWith(t, "Admin", failCalendar{})
	url := srv.URL + "/admin/manual_add"

	code, body := post(t, url, `{"name":"Bob","day":"Fri","time":"PM","floor":"1F"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "error", body["status"])

	// The failed insert leaves the slot free, so a retry fails on the calendar again rather than as taken.
	code, _ = post(t, url, `{"name":"Alice","day":"Fri","time":"PM","floor":"1F"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestGetNamesHealthzQR(t *testing.T) {
	srv := newTestServer(t, "Admin")

	resp, err := http.Get(srv.URL + "/get_names")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	resp.Body.Close()
	assert.Equal(t, []string{"Admin", "Alice", "Bob"}, names)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
