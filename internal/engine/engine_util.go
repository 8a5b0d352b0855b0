package engine

import "github.com/DoyleJ11/slot-draft-backend/internal/slot"

func NewEmptyState() State {
	return State{
		Confirmed: map[slot.ID]string{},
		Pending:   map[slot.ID]string{},
		TurnOrder: nil,
		Cursor:    0,
	}
}

// Reset clears the whole board and ends any round.
func Reset(State) ([]Event, State) {
	return []Event{{Type: EvtSessionReset}}, NewEmptyState()
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func DerivePhase(s State) Phase {
	switch {
	case len(s.TurnOrder) == 0:
		return PhaseNoRound
	case s.Cursor < len(s.TurnOrder):
		return PhaseInRound
	default:
		return PhaseRoundEnded
	}
}

// CurrentTurn names the user holding the turn, or TurnWaiting / TurnRoundEnd.
func CurrentTurn(s State) string {
	switch DerivePhase(s) {
	case PhaseNoRound:
		return TurnWaiting
	case PhaseRoundEnded:
		return TurnRoundEnd
	default:
		return s.TurnOrder[s.Cursor]
	}
}

// cloneSlots never returns nil so callers can write into the copy.
func cloneSlots(m map[slot.ID]string) map[slot.ID]string {
	out := make(map[slot.ID]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
