package session

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/directory"
	"github.com/DoyleJ11/slot-draft-backend/internal/engine"
	"github.com/DoyleJ11/slot-draft-backend/internal/hub"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
)

var (
	ErrUnknownUser         = directory.ErrUnknownUser
	ErrDuplicateConnection = hub.ErrDuplicateUser
	ErrMalformedSlot       = slot.ErrMalformed
	ErrInvalidMode         = slot.ErrInvalidMode

	ErrNotAdmin         = errors.New("admin only")
	ErrNotConnected     = errors.New("user not connected")
	ErrNothingToCommit  = errors.New("no pending slots to commit")
	ErrCommitInProgress = errors.New("calendar commit in progress")
	ErrCalendar         = errors.New("calendar unavailable")
	ErrInternal         = errors.New("internal error")
	ErrClosed           = errors.New("session closed")
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindExternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Kind classifies err for callers that need to pick a status code.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnknownUser),
		errors.Is(err, ErrMalformedSlot),
		errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrNothingToCommit),
		errors.Is(err, engine.ErrNoParticipants),
		errors.Is(err, engine.ErrSlotNotFound):
		return KindValidation

	case errors.Is(err, ErrDuplicateConnection),
		errors.Is(err, ErrCommitInProgress),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, engine.ErrSlotTaken),
		errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrRoundNotStarted),
		errors.Is(err, engine.ErrRoundEnded):
		return KindConflict

	case errors.Is(err, ErrNotAdmin):
		return KindForbidden

	case errors.Is(err, ErrCalendar),
		errors.Is(err, calendar.ErrUnauthorized),
		errors.Is(err, calendar.ErrInsert):
		return KindExternal

	default:
		return KindInternal
	}
}

// describe turns an operation failure into the text shown to the user who
// caused it.
func describe(err error, turn string) string {
	switch {
	case errors.Is(err, ErrMalformedSlot):
		return "That is not a valid slot."
	case errors.Is(err, engine.ErrRoundNotStarted):
		return "The round has not started yet."
	case errors.Is(err, engine.ErrRoundEnded):
		return "All turns are done for this round."
	case errors.Is(err, engine.ErrNotYourTurn):
		return fmt.Sprintf("It is not your turn. Waiting for %s.", turn)
	case errors.Is(err, engine.ErrSlotTaken):
		return "That slot is already taken."
	case errors.Is(err, engine.ErrSlotNotFound):
		return "That slot is not booked."
	case errors.Is(err, ErrNotAdmin):
		return "Only the admin can do that."
	case errors.Is(err, ErrNotConnected):
		return "You are not connected."
	default:
		return "Something went wrong. Please try again."
	}
}
