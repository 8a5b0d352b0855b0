package engine

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

var ErrNoParticipants = errors.New("no participants")
var ErrRoundNotStarted = errors.New("round not started")
var ErrRoundEnded = errors.New("round ended")
var ErrNotYourTurn = errors.New("not your turn")
var ErrSlotTaken = errors.New("slot already taken")
var ErrSlotNotFound = errors.New("slot not found")
var ErrNotPending = errors.New("slot not pending for user")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseNoRound    Phase = "no_round"
	PhaseInRound    Phase = "in_round"
	PhaseRoundEnded Phase = "round_ended"
)

// Turn indicators reported when nobody holds the turn.
const (
	TurnWaiting  = "WAITING"
	TurnRoundEnd = "ROUND_END"
)

// State is the shared board. Confirmed maps a slot to the initials shown on
// the board; Pending maps a slot to the user who claimed it this round.
// A slot is never in both maps.
type State struct {
	Confirmed map[slot.ID]string
	Pending   map[slot.ID]string
	TurnOrder []string
	Cursor    int
}

type CommandType string

const (
	CmdStartRound  CommandType = "StartRound"
	CmdClaimSlot   CommandType = "ClaimSlot"
	CmdAdvanceTurn CommandType = "AdvanceTurn"
	CmdDeleteSlot  CommandType = "DeleteSlot"
	CmdCommitSlot  CommandType = "CommitSlot"
	CmdManualAdd   CommandType = "ManualAdd"
	CmdReset       CommandType = "Reset"
)

/*
	CmdStartRound  -> EvtRoundStarted
	CmdClaimSlot   -> EvtSlotClaimed -> EvtTurnAdvanced -> EvtRoundEnded (on the last turn)
	CmdAdvanceTurn -> EvtTurnAdvanced -> EvtRoundEnded (on the last turn)
	CmdDeleteSlot  -> EvtSlotDeleted
	CmdCommitSlot  -> EvtSlotConfirmed (pending -> confirmed)
	CmdManualAdd   -> EvtSlotConfirmed (free -> confirmed)
	CmdReset       -> EvtSessionReset
*/

type Command struct {
	Type         CommandType
	User         string
	Slot         slot.ID
	Initials     string
	Participants []string
	// Shuffle permutes the participants in place for CmdStartRound.
	// Nil uses a uniform random shuffle.
	Shuffle func([]string)
}

type EventType string

const (
	EvtRoundStarted  EventType = "RoundStarted"
	EvtSlotClaimed   EventType = "SlotClaimed"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtRoundEnded    EventType = "RoundEnded"
	EvtSlotDeleted   EventType = "SlotDeleted"
	EvtSlotConfirmed EventType = "SlotConfirmed"
	EvtSessionReset  EventType = "SessionReset"
)

type Event struct {
	Type     EventType
	User     string
	Slot     slot.ID
	Initials string
	Order    []string
}

// Apply validates cmd against s. On error the returned state is s itself and
// nothing was changed.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartRound:
		return StartRound(s, cmd.Participants, cmd.Shuffle)
	case CmdClaimSlot:
		return ClaimSlot(s, cmd.User, cmd.Slot)
	case CmdAdvanceTurn:
		events, next := AdvanceTurn(s)
		return events, next, nil
	case CmdDeleteSlot:
		return DeleteSlot(s, cmd.Slot)
	case CmdCommitSlot:
		return CommitSlot(s, cmd.User, cmd.Slot, cmd.Initials)
	case CmdManualAdd:
		return ManualAdd(s, cmd.Slot, cmd.Initials)
	case CmdReset:
		events, next := Reset(s)
		return events, next, nil
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// StartRound begins a new round over a fresh permutation of participants.
// Pending claims from the previous round are dropped; confirmed slots stay.
func StartRound(s State, participants []string, shuffle func([]string)) ([]Event, State, error) {
	if len(participants) == 0 {
		return nil, s, ErrNoParticipants
	}
	if shuffle == nil {
		shuffle = shuffleUniform
	}

	order := slices.Clone(participants)
	shuffle(order)

	next := s
	next.Confirmed = cloneSlots(s.Confirmed)
	next.Pending = map[slot.ID]string{}
	next.TurnOrder = order
	next.Cursor = 0

	return []Event{{Type: EvtRoundStarted, Order: slices.Clone(order)}}, next, nil
}

// ClaimSlot records a pending claim for the user holding the turn and passes
// the turn on. A claim always consumes exactly one turn.
func ClaimSlot(s State, user string, id slot.ID) ([]Event, State, error) {
	switch DerivePhase(s) {
	case PhaseNoRound:
		return nil, s, ErrRoundNotStarted
	case PhaseRoundEnded:
		return nil, s, ErrRoundEnded
	}
	if s.TurnOrder[s.Cursor] != user {
		return nil, s, ErrNotYourTurn
	}
	if IsTaken(s, id) {
		return nil, s, ErrSlotTaken
	}

	next := s
	next.Pending = cloneSlots(s.Pending)
	next.Pending[id] = user

	events := []Event{{Type: EvtSlotClaimed, User: user, Slot: id}}
	advanced, next := AdvanceTurn(next)
	return append(events, advanced...), next, nil
}

// AdvanceTurn moves the cursor forward by one. It is a no-op outside a round.
func AdvanceTurn(s State) ([]Event, State) {
	if DerivePhase(s) != PhaseInRound {
		return nil, s
	}

	next := s
	next.Cursor++

	events := []Event{{Type: EvtTurnAdvanced, User: CurrentTurn(next)}}
	if next.Cursor == len(next.TurnOrder) {
		events = append(events, Event{Type: EvtRoundEnded})
	}
	return events, next
}

// DeleteSlot removes id from whichever map holds it.
func DeleteSlot(s State, id slot.ID) ([]Event, State, error) {
	_, inPending := s.Pending[id]
	_, inConfirmed := s.Confirmed[id]
	if !inPending && !inConfirmed {
		return nil, s, ErrSlotNotFound
	}

	next := s
	next.Pending = cloneSlots(s.Pending)
	next.Confirmed = cloneSlots(s.Confirmed)
	delete(next.Pending, id)
	delete(next.Confirmed, id)

	return []Event{{Type: EvtSlotDeleted, Slot: id}}, next, nil
}

// CommitSlot moves a pending claim owned by user into the confirmed map.
func CommitSlot(s State, user string, id slot.ID, initials string) ([]Event, State, error) {
	if owner, ok := s.Pending[id]; !ok || owner != user {
		return nil, s, ErrNotPending
	}

	next := s
	next.Pending = cloneSlots(s.Pending)
	next.Confirmed = cloneSlots(s.Confirmed)
	delete(next.Pending, id)
	next.Confirmed[id] = initials

	return []Event{{Type: EvtSlotConfirmed, User: user, Slot: id, Initials: initials}}, next, nil
}

// ManualAdd confirms a free slot directly, bypassing turns and the pending map.
func ManualAdd(s State, id slot.ID, initials string) ([]Event, State, error) {
	if IsTaken(s, id) {
		return nil, s, ErrSlotTaken
	}

	next := s
	next.Confirmed = cloneSlots(s.Confirmed)
	next.Confirmed[id] = initials

	return []Event{{Type: EvtSlotConfirmed, Slot: id, Initials: initials}}, next, nil
}

func IsTaken(s State, id slot.ID) bool {
	if _, ok := s.Confirmed[id]; ok {
		return true
	}
	_, ok := s.Pending[id]
	return ok
}
