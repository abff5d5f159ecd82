package broadcast

import (
	"sync"

	"go.uber.org/zap"
)

// Event is the wire-ready envelope for everything pushed to clients. Seq is
// monotonic per match so clients can drop duplicate or out-of-order delivery.
type Event struct {
	MatchID string `json:"match_id"`
	Seq     uint64 `json:"seq"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster is the gateway match actors publish through. Actors never see
// individual connections.
type Broadcaster interface {
	Broadcast(matchID string, e Event)
}

// Hub fans events out to every subscriber of a match's room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]chan Event
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]chan Event),
		log:   log,
	}
}

// Join subscribes a client to a match room and returns its outbox. The
// channel is closed by the hub when the client is dropped or leaves.
func (h *Hub) Join(matchID, clientID string, buf int) <-chan Event {
	out := make(chan Event, buf)
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[string]chan Event)
		h.rooms[matchID] = room
	}
	if old, ok := room[clientID]; ok {
		close(old)
	}
	room[clientID] = out
	return out
}

func (h *Hub) Leave(matchID, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[matchID]
	if !ok {
		return
	}
	if ch, ok := room[clientID]; ok {
		close(ch)
		delete(room, clientID)
	}
	if len(room) == 0 {
		delete(h.rooms, matchID)
	}
}

// Broadcast delivers to every subscriber without blocking. A client whose
// outbox is full is slow or gone: it gets dropped, same as the websocket
// layer would do on a write timeout.
func (h *Hub) Broadcast(matchID string, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[matchID]
	if !ok {
		return
	}
	for id, ch := range room {
		select {
		case ch <- e:
		default:
			close(ch)
			delete(room, id)
			h.log.Warn("dropping slow subscriber",
				zap.String("match_id", matchID),
				zap.String("client_id", id))
		}
	}
}

// RoomSize reports how many subscribers a match still has.
func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[matchID])
}

// CloseRoom evicts every subscriber of a match, used on match teardown.
func (h *Hub) CloseRoom(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[matchID]
	if !ok {
		return
	}
	for _, ch := range room {
		close(ch)
	}
	delete(h.rooms, matchID)
}
