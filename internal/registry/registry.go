package registry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/flipside-gg/arena-backend/internal/broadcast"
	"github.com/flipside-gg/arena-backend/internal/engine"
	"github.com/flipside-gg/arena-backend/internal/match"
	"github.com/flipside-gg/arena-backend/internal/metrics"
	"github.com/flipside-gg/arena-backend/internal/store"
)

var ErrAlreadyExists = errors.New("match already exists")
var ErrUnknownVariant = errors.New("unknown match variant")

type Msg interface{ isRegistryMsg() }

// CreateSpec carries everything needed to spin up a match. Duel players are
// listed up front because deposit confirmation gates creation; battle-royale
// matches start empty and fill over the wire.
type CreateSpec struct {
	ID      string
	Config  engine.Config
	Players []string
	Seed    int64 // 0 draws a fresh seed; fixed seeds are for replay/audit
}

type Create struct {
	Spec  CreateSpec
	Reply chan CreateReply
}

type CreateReply struct {
	Actor *match.Actor
	Err   error
}

type Get struct {
	ID    string
	Reply chan *match.Actor // nil when not found
}

type Remove struct{ ID string }

type Shutdown struct{}

func (Create) isRegistryMsg()   {}
func (Get) isRegistryMsg()      {}
func (Remove) isRegistryMsg()   {}
func (Shutdown) isRegistryMsg() {}

// Rooms is what the registry needs from the broadcast layer: the gateway the
// actors publish through, plus room teardown on eviction.
type Rooms interface {
	broadcast.Broadcaster
	CloseRoom(matchID string)
}

type Deps struct {
	Rooms      Rooms
	Store      store.Gateway
	Log        *zap.Logger
	EvictAfter time.Duration
	Seed       func() int64
}

// Registry owns the collection of live match actors. It is itself an actor:
// the map is only ever touched from its loop, so no lock spans matches.
type Registry struct {
	inbox  chan Msg
	live   map[string]*match.Actor
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, deps Deps) *Registry {
	ctx, cancel := context.WithCancel(parent)
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = store.Nop{}
	}
	if deps.Seed == nil {
		deps.Seed = func() int64 { return time.Now().UnixNano() }
	}
	r := &Registry{
		inbox:  make(chan Msg, 64),
		live:   make(map[string]*match.Actor),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Create:
				if _, ok := r.live[msg.Spec.ID]; ok {
					msg.Reply <- CreateReply{Err: ErrAlreadyExists}
					break
				}
				a, err := r.build(msg.Spec)
				if err != nil {
					msg.Reply <- CreateReply{Err: err}
					break
				}
				r.live[msg.Spec.ID] = a
				metrics.MatchesCreated.WithLabelValues(string(msg.Spec.Config.Variant)).Inc()
				metrics.LiveMatches.Set(float64(len(r.live)))
				r.deps.Log.Info("match created",
					zap.String("match_id", msg.Spec.ID),
					zap.String("variant", string(msg.Spec.Config.Variant)))
				msg.Reply <- CreateReply{Actor: a}

			case Get:
				msg.Reply <- r.live[msg.ID] // may be nil

			case Remove:
				a, ok := r.live[msg.ID]
				if !ok {
					break
				}
				delete(r.live, msg.ID)
				metrics.LiveMatches.Set(float64(len(r.live)))
				r.deps.Rooms.CloseRoom(msg.ID)
				a.Stop()
				r.deps.Log.Info("match removed", zap.String("match_id", msg.ID))

			case Shutdown:
				for id, a := range r.live {
					a.Stop()
					r.deps.Rooms.CloseRoom(id)
				}
				clear(r.live)
				metrics.LiveMatches.Set(0)
				r.cancel()
				return
			}
		}
	}
}

func (r *Registry) build(spec CreateSpec) (*match.Actor, error) {
	seed := spec.Seed
	if seed == 0 {
		seed = r.deps.Seed()
	}
	rng := rand.New(rand.NewSource(seed))

	var m *engine.Match
	var err error
	switch spec.Config.Variant {
	case engine.VariantDuel:
		// Duels carry the power mechanic, so they run the weighted policy.
		res := engine.NewResolver(engine.PolicyWeighted, rng)
		if len(spec.Players) != 2 {
			return nil, engine.ErrBadConfig
		}
		m, err = engine.NewDuel(spec.ID, spec.Config, res, spec.Players[0], spec.Players[1])
	case engine.VariantRoyale:
		// Battle royale is advertised as even odds: fair targets only.
		res := engine.NewResolver(engine.PolicyFair, rng)
		m, err = engine.NewRoyale(spec.ID, spec.Config, res)
	default:
		return nil, ErrUnknownVariant
	}
	if err != nil {
		return nil, err
	}

	return match.New(r.ctx, m, match.Deps{
		Broadcast:  r.deps.Rooms,
		Store:      r.deps.Store,
		Log:        r.deps.Log,
		EvictAfter: r.deps.EvictAfter,
		OnEvict: func(id string) {
			select {
			case r.inbox <- Remove{ID: id}:
			case <-r.ctx.Done():
			}
		},
	}), nil
}
