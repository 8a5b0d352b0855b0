package types

import (
	"encoding/json"
	"strings"

	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

// Server -> client message types.
const (
	TypeInitialState      = "initial_state"
	TypeTurnUpdate        = "turn_update"
	TypeRoundStarted      = "round_started"
	TypeSlotUpdate        = "slot_update"
	TypeUserListUpdate    = "user_list_update"
	TypeWeekModeUpdate    = "week_mode_update"
	TypeCalendarCommitted = "calendar_committed"
	TypeError             = "error"
)

// ServerMessage is one JSON object pushed over the live connection. Only the
// fields relevant to Type are set.
type ServerMessage struct {
	Type string `json:"type"`

	// initial_state
	Reserved map[slot.ID]string `json:"reserved,omitempty"`
	Pending  map[slot.ID]string `json:"pending,omitempty"`

	// turn_update, slot_update
	User string `json:"user,omitempty"`

	// round_started
	Order []string `json:"order,omitempty"`

	// slot_update
	SlotID  string `json:"slotId,omitempty"`
	Initial string `json:"initial,omitempty"`

	// user_list_update
	Users []UserStatus `json:"users,omitempty"`

	// week_mode_update
	WeekMode *int `json:"week_mode,omitempty"`

	// calendar_committed
	CommittedData map[slot.ID]string `json:"committed_data,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

type UserStatus struct {
	Name          string `json:"name"`
	Participating bool   `json:"participating"`
}

func InitialState(reserved, pending map[slot.ID]string) ServerMessage {
	return ServerMessage{Type: TypeInitialState, Reserved: reserved, Pending: pending}
}

func TurnUpdate(user string) ServerMessage {
	return ServerMessage{Type: TypeTurnUpdate, User: user}
}

func RoundStarted(order []string) ServerMessage {
	return ServerMessage{Type: TypeRoundStarted, Order: order}
}

func SlotUpdate(id slot.ID, user, initial string) ServerMessage {
	return ServerMessage{Type: TypeSlotUpdate, SlotID: id.String(), User: user, Initial: initial}
}

func UserListUpdate(users []UserStatus) ServerMessage {
	return ServerMessage{Type: TypeUserListUpdate, Users: users}
}

func WeekModeUpdate(mode slot.WeekMode) ServerMessage {
	m := int(mode)
	return ServerMessage{Type: TypeWeekModeUpdate, WeekMode: &m}
}

func CalendarCommitted(committed map[slot.ID]string) ServerMessage {
	return ServerMessage{Type: TypeCalendarCommitted, CommittedData: committed}
}

func Error(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: message}
}

// MarshalJSON keeps empty maps and lists on the wire for the message types
// that own them, so clients can replace their board wholesale.
func (m ServerMessage) MarshalJSON() ([]byte, error) {
	type plain ServerMessage
	switch m.Type {
	case TypeInitialState:
		return json.Marshal(struct {
			Type     string             `json:"type"`
			Reserved map[slot.ID]string `json:"reserved"`
			Pending  map[slot.ID]string `json:"pending"`
		}{m.Type, nonNil(m.Reserved), nonNil(m.Pending)})
	case TypeUserListUpdate:
		users := m.Users
		if users == nil {
			users = []UserStatus{}
		}
		return json.Marshal(struct {
			Type  string       `json:"type"`
			Users []UserStatus `json:"users"`
		}{m.Type, users})
	case TypeCalendarCommitted:
		return json.Marshal(struct {
			Type          string             `json:"type"`
			CommittedData map[slot.ID]string `json:"committed_data"`
		}{m.Type, nonNil(m.CommittedData)})
	case TypeRoundStarted:
		order := m.Order
		if order == nil {
			order = []string{}
		}
		return json.Marshal(struct {
			Type  string   `json:"type"`
			Order []string `json:"order"`
		}{m.Type, order})
	default:
		return json.Marshal(plain(m))
	}
}

func nonNil(m map[slot.ID]string) map[slot.ID]string {
	if m == nil {
		return map[slot.ID]string{}
	}
	return m
}

// ClientMessage is what a live connection sends: a bare slot string (a claim)
// or a JSON object tagged by "type".
type ClientMessage interface{ isClientMessage() }

type Claim struct {
	Slot string
}

func (Claim) isClientMessage() {}

type AdminDelete struct {
	SlotID string
}

func (AdminDelete) isClientMessage() {}

type SetParticipation struct {
	Status bool
}

func (SetParticipation) isClientMessage() {}

type wireClientMessage struct {
	Type   string `json:"type"`
	SlotID string `json:"slotId,omitempty"`
	Status *bool  `json:"status,omitempty"`
}

// ParseClientMessage decodes a tagged JSON message first and falls back to
// treating the payload as a claim when it is not JSON, has no type, or has a
// type we do not know.
func ParseClientMessage(data []byte) ClientMessage {
	raw := strings.TrimSpace(string(data))

	var wm wireClientMessage
	if err := json.Unmarshal(data, &wm); err != nil || wm.Type == "" {
		return Claim{Slot: raw}
	}

	switch wm.Type {
	case "admin_delete":
		return AdminDelete{SlotID: wm.SlotID}
	case "set_participation":
		status := true
		if wm.Status != nil {
			status = *wm.Status
		}
		return SetParticipation{Status: status}
	default:
		return Claim{Slot: raw}
	}
}
