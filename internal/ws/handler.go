package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/flipside-gg/arena-backend/internal/broadcast"
	"github.com/flipside-gg/arena-backend/internal/engine"
	"github.com/flipside-gg/arena-backend/internal/match"
	"github.com/flipside-gg/arena-backend/internal/registry"
	"github.com/flipside-gg/arena-backend/pkg/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a client onto a match room. The socket itself carries no
// authority: every action is validated by the match actor, and the player
// identity is normalized once here at the boundary.
func Handler(reg *registry.Registry, hub *broadcast.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("match")
		player := engine.NormalizeID(r.URL.Query().Get("player"))
		if matchID == "" || player == "" {
			http.Error(w, "missing match or player", http.StatusBadRequest)
			return
		}

		reply := make(chan *match.Actor, 1)
		reg.Inbox() <- registry.Get{ID: matchID, Reply: reply}
		actor := <-reply
		if actor == nil {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := player + "#" + randID(6)
		out := hub.Join(matchID, clientID, 16)
		log.Debug("client connected",
			zap.String("match_id", matchID),
			zap.String("client_id", clientID))
		defer func() {
			log.Debug("client disconnected",
				zap.String("match_id", matchID),
				zap.String("client_id", clientID))
			hub.Leave(matchID, clientID)
			actor.Inbox() <- match.Leave{Player: player}
			if hub.RoomSize(matchID) == 0 {
				actor.Inbox() <- match.Abandon{}
			}
		}()

		// Current snapshot first, so a reconnecting client can resync before
		// any delta arrives.
		stateReply := make(chan match.View, 1)
		actor.Inbox() <- match.GetState{Reply: stateReply}
		view := <-stateReply
		writeJSON(r.Context(), conn, broadcast.Event{
			MatchID: matchID,
			Seq:     view.Seq,
			Type:    string(engine.EvtStateUpdate),
			Payload: view.Snapshot,
		})

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for evt := range out {
				writeJSON(writeCtx, conn, evt)
			}
			// Room closed under us: match evicted.
			conn.Close(websocket.StatusGoingAway, "match closed")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeJSON(r.Context(), conn, types.ErrorMessage{
					Type: "rejected", Action: "", Reason: types.ReasonBadMessage,
				})
				continue
			}

			act, ok := toAction(cm, player)
			if !ok {
				writeJSON(r.Context(), conn, types.ErrorMessage{
					Type: "rejected", Action: cm.Type, Reason: types.ReasonBadMessage,
				})
				continue
			}

			errReply := make(chan error, 1)
			act.Reply = errReply
			actor.Inbox() <- act

			select {
			case err := <-errReply:
				if err != nil {
					writeJSON(r.Context(), conn, types.ErrorMessage{
						Type: "rejected", Action: cm.Type, Reason: reasonFor(err),
					})
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

func toAction(cm types.ClientMessage, player string) (match.Action, bool) {
	switch cm.Type {
	case "join":
		return match.Action{Type: match.ActionJoin, Player: player}, true
	case "submit_choice":
		c, ok := engine.ParseChoice(cm.Choice)
		if !ok {
			return match.Action{}, false
		}
		return match.Action{Type: match.ActionSubmitChoice, Player: player, Choice: c}, true
	case "submit_power":
		return match.Action{Type: match.ActionSubmitPower, Player: player, Power: cm.Power}, true
	case "commit_flip":
		return match.Action{Type: match.ActionCommitFlip, Player: player}, true
	default:
		return match.Action{}, false
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidPhase), errors.Is(err, engine.ErrChoicesLocked):
		return types.ReasonInvalidPhase
	case errors.Is(err, engine.ErrNotParticipant):
		return types.ReasonNotParticipant
	case errors.Is(err, engine.ErrWrongTurn):
		return types.ReasonWrongTurn
	case errors.Is(err, engine.ErrNoChoice):
		return types.ReasonNoChoice
	case errors.Is(err, engine.ErrAlreadyCommitted):
		return types.ReasonAlreadyCommitted
	case errors.Is(err, engine.ErrMatchFull):
		return types.ReasonMatchFull
	case errors.Is(err, engine.ErrEliminated):
		return types.ReasonEliminated
	case errors.Is(err, engine.ErrBadChoice):
		return types.ReasonBadChoice
	default:
		return types.ReasonBadMessage
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
