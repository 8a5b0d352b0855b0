package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/engine"
	"github.com/DoyleJ11/slot-draft-backend/internal/hub"
	"github.com/DoyleJ11/slot-draft-backend/internal/slot"
	"github.com/DoyleJ11/slot-draft-backend/internal/types"
)

// Connect registers user with outbox. The newcomer gets the current board,
// turn and week mode; everyone gets the new user list.
func (s *Session) Connect(ctx context.Context, user string, outbox chan types.ServerMessage) (*hub.Client, error) {
	var client *hub.Client
	err := s.do(ctx, func() error {
		if !s.dir.Contains(user) {
			return fmt.Errorf("connect %q: %w", user, ErrUnknownUser)
		}
		c, err := s.hub.Register(user, outbox)
		if err != nil {
			return fmt.Errorf("connect %q: %w", user, err)
		}
		client = c

		s.hub.Broadcast(types.UserListUpdate(s.hub.Users()))
		s.hub.Send(user, s.initialState())
		s.hub.Send(user, types.TurnUpdate(engine.CurrentTurn(s.state)))
		s.hub.Send(user, types.WeekModeUpdate(s.weekMode))

		s.log.Info("user connected", zap.String("user", user), zap.Int("clients", s.hub.Len()))
		return nil
	})
	return client, err
}

// Disconnect is a no-op unless id is the user's current connection.
func (s *Session) Disconnect(ctx context.Context, user string, id uuid.UUID) error {
	return s.do(ctx, func() error {
		if !s.hub.Unregister(user, id) {
			return nil
		}
		s.log.Info("user disconnected", zap.String("user", user), zap.Int("clients", s.hub.Len()))
		s.hub.Broadcast(types.UserListUpdate(s.hub.Users()))

		if engine.CurrentTurn(s.state) == user {
			s.skipAbsent()
			s.hub.Broadcast(types.TurnUpdate(engine.CurrentTurn(s.state)))
		}
		return nil
	})
}

// SetParticipation only affects who is dealt into the next round.
func (s *Session) SetParticipation(ctx context.Context, user string, participating bool) error {
	return s.do(ctx, func() error {
		if !s.hub.SetParticipating(user, participating) {
			return fmt.Errorf("set participation %q: %w", user, ErrNotConnected)
		}
		s.log.Info("participation changed", zap.String("user", user), zap.Bool("participating", participating))
		s.hub.Broadcast(types.UserListUpdate(s.hub.Users()))
		return nil
	})
}

func (s *Session) StartRound(ctx context.Context) ([]string, error) {
	var order []string
	err := s.do(ctx, func() error {
		if s.committing {
			return ErrCommitInProgress
		}
		_, next, err := engine.Apply(s.state, engine.Command{
			Type:         engine.CmdStartRound,
			Participants: s.hub.Participants(),
			Shuffle:      s.shuffle,
		})
		if err != nil {
			return err
		}
		s.state = next
		order = append([]string(nil), next.TurnOrder...)

		s.log.Info("round started", zap.Strings("order", order))
		s.hub.Broadcast(s.initialState())
		s.hub.Broadcast(types.RoundStarted(order))
		s.skipAbsent()
		s.hub.Broadcast(types.TurnUpdate(engine.CurrentTurn(s.state)))
		return nil
	})
	return order, err
}

// ClaimSlot failures are reported to user alone and leave the board as it was.
func (s *Session) ClaimSlot(ctx context.Context, user, text string) error {
	return s.do(ctx, func() error {
		err := s.claim(user, text)
		if err != nil {
			s.log.Debug("claim rejected", zap.String("user", user), zap.String("slot", text), zap.Error(err))
			s.hub.Send(user, types.Error(describe(err, engine.CurrentTurn(s.state))))
		}
		return err
	})
}

func (s *Session) claim(user, text string) error {
	id, err := slot.Parse(text)
	if err != nil {
		return err
	}
	if _, held := s.holds[id]; held {
		return engine.ErrSlotTaken
	}
	events, next, err := engine.Apply(s.state, engine.Command{
		Type: engine.CmdClaimSlot,
		User: user,
		Slot: id,
	})
	if err != nil {
		return err
	}
	s.state = next

	initials, err := s.dir.Initials(user)
	if err != nil {
		initials = user
	}
	s.log.Info("slot claimed", zap.String("user", user), zap.Stringer("slot", id))
	s.hub.Broadcast(types.SlotUpdate(id, user, initials))

	if engine.ContainsEvent(events, engine.EvtRoundEnded) {
		s.log.Info("round ended")
	}
	s.skipAbsent()
	s.hub.Broadcast(types.TurnUpdate(engine.CurrentTurn(s.state)))
	return nil
}

// AdminDeleteSlot frees a pending or confirmed slot. Only the admin may.
func (s *Session) AdminDeleteSlot(ctx context.Context, user, text string) error {
	return s.do(ctx, func() error {
		if !s.isAdmin(user) {
			s.log.Warn("delete refused", zap.String("user", user), zap.String("slot", text))
			s.hub.Send(user, types.Error(describe(ErrNotAdmin, "")))
			return ErrNotAdmin
		}
		id, err := slot.Parse(text)
		if err != nil {
			s.hub.Send(user, types.Error(describe(err, "")))
			return err
		}
		_, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdDeleteSlot, Slot: id})
		if err != nil {
			s.log.Warn("delete failed", zap.Stringer("slot", id), zap.Error(err))
			return err
		}
		s.state = next

		s.log.Info("slot deleted", zap.String("admin", user), zap.Stringer("slot", id))
		s.hub.Broadcast(s.initialState())
		return nil
	})
}

func (s *Session) SetWeekMode(ctx context.Context, n int) (slot.WeekMode, error) {
	mode, err := slot.ParseWeekMode(n)
	if err != nil {
		return 0, err
	}
	err = s.do(ctx, func() error {
		s.weekMode = mode
		s.log.Info("week mode changed", zap.Stringer("week_mode", mode))
		s.hub.Broadcast(types.WeekModeUpdate(mode))
		return nil
	})
	return mode, err
}

// ResetSession clears the whole board, confirmed slots included.
func (s *Session) ResetSession(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.committing {
			return ErrCommitInProgress
		}
		_, next, err := engine.Apply(s.state, engine.Command{Type: engine.CmdReset})
		if err != nil {
			return err
		}
		s.state = next

		s.log.Info("session reset")
		s.hub.Broadcast(s.initialState())
		s.hub.Broadcast(types.TurnUpdate(engine.TurnRoundEnd))
		return nil
	})
}

func (s *Session) WeekMode(ctx context.Context) (slot.WeekMode, error) {
	var mode slot.WeekMode
	err := s.do(ctx, func() error {
		mode = s.weekMode
		return nil
	})
	return mode, err
}

// skipAbsent passes the turn over users who are no longer connected.
func (s *Session) skipAbsent() {
	events, next := engine.SkipAbsent(s.state, s.hub.IsConnected)
	if len(events) == 0 {
		return
	}
	s.state = next
	for _, ev := range events {
		if ev.Type == engine.EvtTurnAdvanced {
			s.log.Debug("turn passed to", zap.String("user", ev.User))
		}
	}
	s.log.Info("skipped disconnected turns", zap.String("turn", engine.CurrentTurn(s.state)))
}

func (s *Session) isAdmin(user string) bool {
	return s.admin != "" && user == s.admin
}

// initialState shows pending slots by initials rather than by user name.
func (s *Session) initialState() types.ServerMessage {
	reserved := make(map[slot.ID]string, len(s.state.Confirmed))
	for id, initials := range s.state.Confirmed {
		reserved[id] = initials
	}
	pending := make(map[slot.ID]string, len(s.state.Pending))
	for id, user := range s.state.Pending {
		initials, err := s.dir.Initials(user)
		if err != nil {
			initials = user
		}
		pending[id] = initials
	}
	return types.InitialState(reserved, pending)
}
