package match

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/flipside-gg/arena-backend/internal/broadcast"
	"github.com/flipside-gg/arena-backend/internal/engine"
	"github.com/flipside-gg/arena-backend/internal/metrics"
	"github.com/flipside-gg/arena-backend/internal/store"
)

var ErrUnsupportedAction = errors.New("unsupported action")

type Msg interface{ isMatchMsg() }

type ActionType string

const (
	ActionJoin         ActionType = "join"
	ActionSubmitChoice ActionType = "submit_choice"
	ActionSubmitPower  ActionType = "submit_power"
	ActionCommitFlip   ActionType = "commit_flip"
)

// Action is an inbound player action routed from transport code. Reply, when
// set, receives the enumerated rejection (or nil) for sender-side UX; the
// send never blocks the actor.
type Action struct {
	Type   ActionType
	Player string
	Choice engine.Choice
	Power  int
	Reply  chan error
}

func (Action) isMatchMsg() {}

// View mirrors the actor's state for snapshot requests without data races.
type View struct {
	Seq      uint64
	Snapshot engine.Snapshot
}

type GetState struct{ Reply chan View }

func (GetState) isMatchMsg() {}

// Leave records that a player's connection went away, for last-seen
// accounting. Gameplay is unaffected: timers resolve absent players forward.
type Leave struct{ Player string }

func (Leave) isMatchMsg() {}

// Abandon is posted by the transport layer when a match's room is empty. It
// evicts the match only if no round ever completed; anything further along
// finishes on its own through timeouts.
type Abandon struct{}

func (Abandon) isMatchMsg() {}

type timerFired struct{ gen uint64 }

func (timerFired) isMatchMsg() {}

type evictFired struct{ gen uint64 }

func (evictFired) isMatchMsg() {}

type Deps struct {
	Broadcast  broadcast.Broadcaster
	Store      store.Gateway
	Log        *zap.Logger
	OnEvict    func(matchID string)
	EvictAfter time.Duration // linger in the registry after completion
}

// Actor owns one match's canonical state. Everything that touches the match
// goes through the inbox, so operations are strictly sequential per match
// while different matches run fully in parallel.
type Actor struct {
	m      *engine.Match
	inbox  chan Msg
	seq    uint64
	gen    uint64
	timer  *time.Timer
	deps   Deps
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, m *engine.Match, deps Deps) *Actor {
	ctx, cancel := context.WithCancel(parent)
	if deps.EvictAfter <= 0 {
		deps.EvictAfter = 30 * time.Second
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = store.Nop{}
	}
	a := &Actor{
		m:      m,
		inbox:  make(chan Msg, 64),
		deps:   deps,
		log:    deps.Log.With(zap.String("match_id", m.ID), zap.String("variant", string(m.Variant))),
		ctx:    ctx,
		cancel: cancel,
	}
	go a.loop()
	return a
}

func (a *Actor) Inbox() chan<- Msg { return a.inbox }
func (a *Actor) ID() string        { return a.m.ID }

// Stop halts the actor's loop. It cancels the context directly rather than
// going through the inbox, so teardown cannot be lost behind a backlog.
func (a *Actor) Stop() { a.cancel() }

func (a *Actor) loop() {
	defer a.stopTimer()

	a.dispatch(a.m.Begin())
	a.syncTimer(engine.Phase(""), a.m.Turn)

	for {
		select {
		case <-a.ctx.Done():
			return
		case msg := <-a.inbox:
			if a.ctx.Err() != nil {
				return
			}
			if !a.handle(msg) {
				return
			}
		}
	}
}

// handle applies one message. A panic fails only this match: match_error goes
// out, the match is evicted, and the process keeps serving everyone else.
func (a *Actor) handle(msg Msg) (alive bool) {
	alive = true
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("match actor panicked", zap.Any("panic", r))
			a.publish(engine.Event{Type: engine.EvtMatchError, Reason: "internal error"})
			a.evict()
			alive = false
		}
	}()

	switch m := msg.(type) {
	case Action:
		prev, prevTurn := a.m.Phase, a.m.Turn
		events, err := a.apply(m)
		if m.Reply != nil {
			select {
			case m.Reply <- err:
			default:
			}
		}
		if err != nil {
			a.log.Debug("action rejected",
				zap.String("action", string(m.Type)),
				zap.String("player", m.Player),
				zap.Error(err))
			return true
		}
		a.dispatch(events)
		a.syncTimer(prev, prevTurn)

	case timerFired:
		if m.gen != a.gen {
			return true // stale fire from an already-left phase
		}
		metrics.TimerExpirations.Inc()
		prev, prevTurn := a.m.Phase, a.m.Turn
		a.dispatch(a.m.HandleTimeout())
		a.syncTimer(prev, prevTurn)

	case evictFired:
		if m.gen != a.gen {
			return true
		}
		a.evict()
		return false

	case GetState:
		m.Reply <- View{Seq: a.seq, Snapshot: a.m.Snapshot()}

	case Leave:
		a.m.Touch(m.Player)

	case Abandon:
		if len(a.m.History) == 0 && a.m.Phase != engine.PhaseCompleted {
			a.log.Info("match abandoned before first resolved round")
			a.evict()
			return false
		}
	}
	return true
}

func (a *Actor) apply(act Action) ([]engine.Event, error) {
	switch act.Type {
	case ActionJoin:
		return a.m.Join(act.Player)
	case ActionSubmitChoice:
		return a.m.SubmitChoice(act.Player, act.Choice)
	case ActionSubmitPower:
		return a.m.SubmitPower(act.Player, act.Power)
	case ActionCommitFlip:
		return a.m.CommitFlip(act.Player)
	default:
		return nil, ErrUnsupportedAction
	}
}

func (a *Actor) dispatch(events []engine.Event) {
	for _, e := range events {
		a.publish(e)
		switch e.Type {
		case engine.EvtRoundResult:
			metrics.RoundsResolved.Inc()
			if e.Round != nil && !e.Round.Replay {
				a.persistRound(*e.Round)
			}
		case engine.EvtMatchComplete:
			a.finalize(e)
		}
	}
}

func (a *Actor) publish(e engine.Event) {
	a.seq++
	out := broadcast.Event{MatchID: a.m.ID, Seq: a.seq, Type: string(e.Type)}
	switch e.Type {
	case engine.EvtStateUpdate:
		out.Payload = a.m.Snapshot()
	case engine.EvtRoundStart:
		payload := map[string]any{"round": a.m.RoundNum}
		if d, ok := a.m.PhaseTimeout(); ok {
			payload["phase_time_sec"] = int(d / time.Second)
		}
		out.Payload = payload
	case engine.EvtRoundResult:
		out.Payload = e.Round
	case engine.EvtMatchComplete:
		out.Payload = map[string]any{
			"winner": e.Winner,
			"draw":   e.Draw,
			"rounds": len(a.m.History),
		}
	case engine.EvtMatchError:
		out.Payload = map[string]any{"reason": e.Reason}
	}
	a.deps.Broadcast.Broadcast(a.m.ID, out)
}

// persistRound hands the round to the gateway without stalling the actor. A
// failed write is logged and the game moves on.
func (a *Actor) persistRound(r engine.Round) {
	st, log, id := a.deps.Store, a.log, a.m.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.AppendRound(ctx, id, r); err != nil {
			log.Warn("append round failed", zap.Int("round", r.Number), zap.Error(err))
		}
	}()
}

func (a *Actor) finalize(e engine.Event) {
	sum := store.Summary{
		Variant:  a.m.Variant,
		Rounds:   len(a.m.History),
		Winner:   e.Winner,
		Draw:     e.Draw,
		Duration: time.Since(a.m.CreatedAt),
	}
	for _, p := range a.m.Participants {
		sum.Participants = append(sum.Participants, p.ID)
	}
	st, log, id := a.deps.Store, a.log, a.m.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.FinalizeMatch(ctx, id, sum); err != nil {
			log.Warn("finalize match failed", zap.Error(err))
		}
	}()
	a.log.Info("match complete",
		zap.String("winner", e.Winner),
		zap.Bool("draw", e.Draw),
		zap.Int("rounds", sum.Rounds))
}

func (a *Actor) evict() {
	if a.deps.OnEvict != nil {
		a.deps.OnEvict(a.m.ID)
	}
	a.cancel()
}
