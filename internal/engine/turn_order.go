package engine

import "math/rand/v2"

var shuffleUniform = func(users []string) {
	rand.Shuffle(len(users), func(i, j int) {
		users[i], users[j] = users[j], users[i]
	})
}

// SkipAbsent advances past every turn holder for whom present reports false.
// Absent users keep their place in the order; only their turn is passed.
func SkipAbsent(s State, present func(user string) bool) ([]Event, State) {
	var events []Event
	for DerivePhase(s) == PhaseInRound && !present(s.TurnOrder[s.Cursor]) {
		var advanced []Event
		advanced, s = AdvanceTurn(s)
		events = append(events, advanced...)
	}
	return events, s
}
