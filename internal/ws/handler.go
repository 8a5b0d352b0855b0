package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/session"
	"github.com/DoyleJ11/slot-draft-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readLimit    = 4096
	outboxSize   = 32
)

type Options struct {
	// OriginPatterns lists extra hosts allowed to open a connection, e.g.
	// "localhost:*" in development.
	OriginPatterns []string
}

// Handler serves /ws/{userName}. The user named in the path stays connected
// until either side closes; every frame it sends is one client message.
func Handler(s *session.Session, log *zap.Logger, opts Options) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "userName")
		if decoded, err := url.PathUnescape(user); err == nil {
			user = decoded
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.String("user", user), zap.Error(err))
			return
		}
		conn.SetReadLimit(readLimit)

		outbox := make(chan types.ServerMessage, outboxSize)
		client, err := s.Connect(r.Context(), user, outbox)
		switch {
		case errors.Is(err, session.ErrUnknownUser):
			log.Info("rejected unknown user", zap.String("user", user))
			conn.Close(websocket.StatusPolicyViolation, "unknown user")
			return
		case errors.Is(err, session.ErrDuplicateConnection):
			log.Info("rejected duplicate connection", zap.String("user", user))
			ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
			_ = wsjson.Write(ctx, conn, types.Error("This name is already connected."))
			cancel()
			conn.Close(websocket.StatusUnsupportedData, "duplicate connection")
			return
		case err != nil:
			log.Error("connect failed", zap.String("user", user), zap.Error(err))
			conn.Close(websocket.StatusInternalError, "session unavailable")
			return
		}
		defer func() {
			if err := s.Disconnect(context.WithoutCancel(r.Context()), user, client.ID); err != nil {
				log.Warn("disconnect failed", zap.String("user", user), zap.Error(err))
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. The outbox is closed when the session drops this
		// connection.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-outbox:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err := wsjson.Write(wctx, conn, msg)
					wcancel()
					if err != nil {
						log.Debug("write failed", zap.String("user", user), zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						log.Debug("read failed", zap.String("user", user), zap.Error(err))
					}
				}
				break
			}
			if err := dispatch(ctx, s, user, types.ParseClientMessage(data)); err != nil {
				if errors.Is(err, session.ErrClosed) {
					break
				}
				log.Debug("client message rejected", zap.String("user", user), zap.Error(err))
			}
		}

		cancel()
		conn.Close(websocket.StatusNormalClosure, "bye")
		<-writerDone
	}
}

func dispatch(ctx context.Context, s *session.Session, user string, msg types.ClientMessage) error {
	switch m := msg.(type) {
	case types.Claim:
		return s.ClaimSlot(ctx, user, m.Slot)
	case types.AdminDelete:
		return s.AdminDeleteSlot(ctx, user, m.SlotID)
	case types.SetParticipation:
		return s.SetParticipation(ctx, user, m.Status)
	default:
		return nil
	}
}
