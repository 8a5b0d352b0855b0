// Package calendar is the external calendar the board commits confirmed
// slots to.
package calendar

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout caps a single insert call.
const DefaultTimeout = 10 * time.Second

var ErrUnauthorized = errors.New("calendar unauthorized")
var ErrInsert = errors.New("calendar insert failed")

type Event struct {
	CalendarID  string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type EventRef struct {
	ID       string
	HTMLLink string
}

// Inserter is what the session needs from a calendar provider. Authorize is
// called once per batch; a failure there fails the whole batch.
type Inserter interface {
	Authorize(ctx context.Context) error
	InsertEvent(ctx context.Context, ev Event) (EventRef, error)
}
