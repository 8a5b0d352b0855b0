package hub

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/slot-draft-backend/internal/types"
)

var ErrDuplicateUser = errors.New("user already connected")

// Client is one live connection. Outbox is drained by the connection's
// writer goroutine; the hub closes it on Unregister.
type Client struct {
	ID            uuid.UUID
	User          string
	Outbox        chan types.ServerMessage
	Participating bool
}

// Hub is the connection registry. At most one client per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register adds user with participation on. An existing connection for the
// same user is kept and the new one is refused.
func (h *Hub) Register(user string, outbox chan types.ServerMessage) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[user]; ok {
		return nil, ErrDuplicateUser
	}
	c := &Client{
		ID:            uuid.New(),
		User:          user,
		Outbox:        outbox,
		Participating: true,
	}
	h.clients[user] = c
	return c, nil
}

// Unregister removes user only if id still names its current connection, so
// a stale handle can never evict a newer one. Reports whether anything changed.
func (h *Hub) Unregister(user string, id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[user]
	if !ok || c.ID != id {
		return false
	}
	delete(h.clients, user)
	close(c.Outbox)
	return true
}

func (h *Hub) IsConnected(user string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[user]
	return ok
}

func (h *Hub) SetParticipating(user string, participating bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[user]
	if !ok {
		return false
	}
	c.Participating = participating
	return true
}

// Participants lists connected users with participation on, sorted by name.
func (h *Hub) Participants() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.clients))
	for user, c := range h.clients {
		if c.Participating {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out
}

// Users reports every connected user and their participation flag, sorted.
func (h *Hub) Users() []types.UserStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]types.UserStatus, 0, len(h.clients))
	for user, c := range h.clients {
		out = append(out, types.UserStatus{Name: user, Participating: c.Participating})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to a snapshot of the current clients. Delivery is
// best effort: a client whose outbox is full misses the message and is left
// for its own connection to notice and disconnect.
func (h *Hub) Broadcast(msg types.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		h.deliver(c, msg)
	}
}

// Send delivers msg to user only. Unknown users are ignored.
func (h *Hub) Send(user string, msg types.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[user]; ok {
		h.deliver(c, msg)
	}
}

// CloseAll unregisters every client and closes its outbox.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for user, c := range h.clients {
		close(c.Outbox)
		delete(h.clients, user)
	}
}

// deliver must run with h.mu held; the outbox is only closed under the write lock.
func (h *Hub) deliver(c *Client, msg types.ServerMessage) {
	select {
	case c.Outbox <- msg:
	default:
		h.log.Warn("outbox full, dropping message",
			zap.String("user", c.User),
			zap.String("type", msg.Type),
		)
	}
}
