package engine

import "time"

// Begin emits the opening broadcast for a freshly created match. Duels start
// directly in round 1; battle royales open in the filling phase.
func (m *Match) Begin() []Event {
	if m.Variant == VariantDuel {
		return []Event{{Type: EvtRoundStart}, {Type: EvtStateUpdate}}
	}
	return []Event{{Type: EvtStateUpdate}}
}

// SubmitChoice records a heads/tails call for the acting player.
func (m *Match) SubmitChoice(player string, c Choice) ([]Event, error) {
	if c != ChoiceHeads && c != ChoiceTails {
		return nil, ErrBadChoice
	}
	p, err := m.participant(player)
	if err != nil {
		return nil, err
	}
	if m.Variant == VariantDuel {
		return m.duelSubmitChoice(p, c)
	}
	return m.royaleSubmitChoice(p, c)
}

// SubmitPower records an accumulated power value, clamped to the configured
// range. In a duel only the player whose turn it is may charge.
func (m *Match) SubmitPower(player string, power int) ([]Event, error) {
	p, err := m.participant(player)
	if err != nil {
		return nil, err
	}
	if m.Variant == VariantDuel {
		return m.duelSubmitPower(p, power)
	}
	return m.royaleSubmitPower(p, power)
}

// HandleTimeout advances the match when its phase timer fires. Stale fires
// are filtered out by the actor's generation check before this is called, so
// the current phase is always the one the timer was armed for.
func (m *Match) HandleTimeout() []Event {
	if m.Variant == VariantDuel {
		return m.duelTimeout()
	}
	return m.royaleTimeout()
}

// PhaseTimeout reports how long the current phase may run before the engine
// forces progress, or zero for phases with no timer.
func (m *Match) PhaseTimeout() (time.Duration, bool) {
	switch m.Phase {
	case PhaseAwaitingChoices, PhaseRoundActive:
		return m.Config.RoundTimeout, true
	case PhasePowerCharging:
		return m.Config.ChargeTimeout, true
	case PhaseStarting:
		return m.Config.StartCountdown, true
	case PhaseFilling:
		if m.Config.FillTimeout > 0 {
			return m.Config.FillTimeout, true
		}
		return 0, false
	case PhaseRoundResult:
		return m.Config.ResultDelay, true
	default:
		return 0, false
	}
}
