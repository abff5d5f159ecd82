package match

import (
	"time"

	"github.com/flipside-gg/arena-backend/internal/engine"
)

// Phase timers. A match holds at most one armed timer: arming always cancels
// the previous handle, and every fire carries the generation it was armed
// under. A fire whose generation no longer matches is dropped in handle().
// Power timers not being cleared on turn switches was a recurring bug in the
// systems this replaces; the generation counter makes stale fires inert even
// when the race is lost.

// syncTimer re-arms after an operation when the phase changed, or when the
// duel turn passed within power_charging: each charger gets the full charge
// timeout.
func (a *Actor) syncTimer(prev engine.Phase, prevTurn string) {
	if a.m.Phase == prev && a.m.Turn == prevTurn {
		return
	}
	a.stopTimer()
	a.gen++
	gen := a.gen

	if a.m.Phase == engine.PhaseCompleted {
		a.timer = time.AfterFunc(a.deps.EvictAfter, func() {
			a.post(evictFired{gen: gen})
		})
		return
	}

	d, ok := a.m.PhaseTimeout()
	if !ok {
		return
	}
	a.timer = time.AfterFunc(d, func() {
		a.post(timerFired{gen: gen})
	})
}

func (a *Actor) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// post re-enters the actor's serialized context; a fire never mutates match
// state from the timer goroutine.
func (a *Actor) post(m Msg) {
	select {
	case a.inbox <- m:
	case <-a.ctx.Done():
	}
}
