package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
	"github.com/DoyleJ11/slot-draft-backend/internal/engine"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
	"github.com/DoyleJ11/slot-draft-backend/internal/types"
)

// commitItem is one pending slot captured at the start of a commit.
type commitItem struct {
	id       slot.ID
	user     string
	initials string
	event    calendar.Event
}

// CommitCalendar inserts every pending slot into the calendar. Slots that
// were inserted move to confirmed; the rest stay pending for a retry. The
// calendar calls run outside the session loop.
func (s *Session) CommitCalendar(ctx context.Context) (int, error) {
	var items []commitItem
	err := s.do(ctx, func() error {
		if s.committing {
			return ErrCommitInProgress
		}
		if len(s.state.Pending) == 0 {
			return ErrNothingToCommit
		}
		today := s.now()
		for id, user := range s.state.Pending {
			initials, err := s.dir.Initials(user)
			if err != nil {
				initials = user
			}
			start, end := id.Window(s.weekMode, today, s.loc)
			items = append(items, commitItem{
				id:       id,
				user:     user,
				initials: initials,
				event: calendar.Event{
					CalendarID:  s.calendarIDs[id.Floor],
					Summary:     initials,
					Description: id.String(),
					Start:       start,
					End:         end,
				},
			})
		}
		s.committing = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("commit started", zap.Int("items", len(items)))
	inserted, err := s.insertAll(ctx, items)

	var committed map[slot.ID]string
	finishErr := s.do(context.WithoutCancel(ctx), func() error {
		s.committing = false
		if err != nil {
			return nil
		}
		committed = make(map[slot.ID]string, len(inserted))
		for _, it := range inserted {
			_, next, cerr := engine.Apply(s.state, engine.Command{
				Type:     engine.CmdCommitSlot,
				User:     it.user,
				Slot:     it.id,
				Initials: it.initials,
			})
			if cerr != nil {
				// The slot changed hands while the insert was in flight.
				s.log.Warn("inserted slot no longer pending",
					zap.Stringer("slot", it.id),
					zap.String("user", it.user),
					zap.Error(cerr),
				)
				continue
			}
			s.state = next
			committed[it.id] = it.initials
		}
		s.hub.Broadcast(types.CalendarCommitted(committed))
		return nil
	})
	if err != nil {
		return 0, err
	}
	if finishErr != nil {
		return 0, finishErr
	}

	s.log.Info("commit finished",
		zap.Int("committed", len(committed)),
		zap.Int("failed", len(items)-len(inserted)),
	)
	return len(committed), nil
}

// insertAll authorizes once, then inserts items with bounded parallelism.
// Only an authorization failure is returned; per-item failures are logged and
// the item is left out of the result.
func (s *Session) insertAll(ctx context.Context, items []commitItem) ([]commitItem, error) {
	if err := s.cal.Authorize(ctx); err != nil {
		s.log.Error("calendar authorization failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCalendar, err)
	}

	var (
		mu       sync.Mutex
		inserted []commitItem
		failures error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.limit)
	for _, it := range items {
		g.Go(func() error {
			ref, err := s.insertOne(ctx, it.event)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("calendar insert failed",
					zap.Stringer("slot", it.id),
					zap.String("user", it.user),
					zap.Error(err),
				)
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", it.id, err))
				return nil
			}
			s.log.Debug("calendar event created", zap.Stringer("slot", it.id), zap.String("event_id", ref.ID))
			inserted = append(inserted, it)
			return nil
		})
	}
	_ = g.Wait()

	if failures != nil {
		s.log.Warn("some slots were not committed",
			zap.Int("failed", len(multierr.Errors(failures))),
			zap.Error(failures),
		)
	}
	return inserted, nil
}

func (s *Session) insertOne(ctx context.Context, ev calendar.Event) (calendar.EventRef, error) {
	if ev.CalendarID == "" {
		return calendar.EventRef{}, fmt.Errorf("%w: no calendar for this floor", calendar.ErrInsert)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.cal.InsertEvent(ctx, ev)
}

// ManualAdd books id for name directly into confirmed, skipping turns. The
// slot is held while the calendar call runs so no claim can take it.
func (s *Session) ManualAdd(ctx context.Context, admin, name string, id slot.ID) (string, error) {
	var (
		initials string
		event    calendar.Event
	)
	err := s.do(ctx, func() error {
		if !s.isAdmin(admin) {
			return ErrNotAdmin
		}
		var err error
		initials, err = s.dir.Initials(name)
		if err != nil {
			return fmt.Errorf("manual add %q: %w", name, err)
		}
		if _, held := s.holds[id]; held || engine.IsTaken(s.state, id) {
			return engine.ErrSlotTaken
		}
		start, end := id.Window(s.weekMode, s.now(), s.loc)
		event = calendar.Event{
			CalendarID:  s.calendarIDs[id.Floor],
			Summary:     initials,
			Description: id.String(),
			Start:       start,
			End:         end,
		}
		s.holds[id] = struct{}{}
		return nil
	})
	if err != nil {
		return "", err
	}

	ierr := s.cal.Authorize(ctx)
	if ierr == nil {
		_, ierr = s.insertOne(ctx, event)
	}

	err = s.do(context.WithoutCancel(ctx), func() error {
		delete(s.holds, id)
		if ierr != nil {
			s.log.Error("manual add failed", zap.Stringer("slot", id), zap.String("name", name), zap.Error(ierr))
			return fmt.Errorf("%w: %w", ErrCalendar, ierr)
		}
		_, next, err := engine.Apply(s.state, engine.Command{
			Type:     engine.CmdManualAdd,
			Slot:     id,
			Initials: initials,
		})
		if err != nil {
			return err
		}
		s.state = next

		s.log.Info("manual add", zap.Stringer("slot", id), zap.String("name", name))
		s.hub.Broadcast(s.initialState())
		return nil
	})
	if err != nil {
		return "", err
	}
	return initials, nil
}
