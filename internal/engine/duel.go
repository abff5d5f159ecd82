package engine

// Duel flow: awaiting_choices -> power_charging -> resolving and back around,
// until someone reaches TargetWins or MaxRounds runs out. The resolving phase
// is transient: a round resolves inside a single operation and the match is
// already in the next phase by the time events go out.

func (m *Match) duelSubmitChoice(p *Participant, c Choice) ([]Event, error) {
	if m.Phase == PhasePowerCharging {
		return nil, ErrChoicesLocked
	}
	if m.Phase != PhaseAwaitingChoices {
		return nil, ErrInvalidPhase
	}
	// Overwriting before the opponent has chosen is allowed so client retries
	// are harmless; once both are locked the phase has already moved on.
	p.Choice = c
	if m.bothChosen() {
		return m.enterCharging(), nil
	}
	return []Event{{Type: EvtStateUpdate}}, nil
}

func (m *Match) duelSubmitPower(p *Participant, power int) ([]Event, error) {
	if m.Phase != PhasePowerCharging {
		return nil, ErrInvalidPhase
	}
	if p.ID != m.Turn {
		return nil, ErrWrongTurn
	}
	if p.Choice == ChoiceNone {
		return nil, ErrNoChoice
	}
	p.Power = clampPower(m.Config, power)
	p.PowerSet = true
	return m.advanceCharge(p), nil
}

func (m *Match) bothChosen() bool {
	for _, p := range m.Participants {
		if p.Choice == ChoiceNone {
			return false
		}
	}
	return true
}

func (m *Match) opponent(p *Participant) *Participant {
	for _, o := range m.Participants {
		if o.ID != p.ID {
			return o
		}
	}
	return nil
}

func (m *Match) enterCharging() []Event {
	m.Phase = PhasePowerCharging
	for _, p := range m.Participants {
		p.Power = 0
		p.PowerSet = false
	}
	m.Turn = m.firstCharger()
	return []Event{{Type: EvtStateUpdate}}
}

// firstCharger: the creator (slot 0) charges first in round 1, the loser of
// the previous round goes first afterwards. A drawn round keeps the prior
// assignment.
func (m *Match) firstCharger() string {
	if m.lastLoser != "" {
		return m.lastLoser
	}
	return m.Participants[0].ID
}

// advanceCharge passes the turn after p charged, or resolves the round once
// both powers are in.
func (m *Match) advanceCharge(p *Participant) []Event {
	o := m.opponent(p)
	if !o.PowerSet {
		m.Turn = o.ID
		return []Event{{Type: EvtStateUpdate}}
	}
	return m.resolveDuelRound()
}

func (m *Match) duelTimeout() []Event {
	switch m.Phase {
	case PhaseAwaitingChoices:
		// Never block on a client: missing choices are drawn uniformly and
		// the round proceeds as if they had chosen.
		for _, p := range m.Participants {
			if p.Choice == ChoiceNone {
				p.Choice = m.res.Flip()
			}
		}
		return m.enterCharging()
	case PhasePowerCharging:
		p, err := m.participant(m.Turn)
		if err != nil {
			return nil
		}
		p.Power = m.res.RandomPower(m.Config.MinPower, m.Config.MaxPower)
		p.PowerSet = true
		return m.advanceCharge(p)
	default:
		return nil
	}
}

func (m *Match) resolveDuelRound() []Event {
	m.Phase = PhaseResolving
	a, b := m.Participants[0], m.Participants[1]

	result := m.res.ResolveDuel(
		DuelEntry{Choice: a.Choice, Power: a.Power},
		DuelEntry{Choice: b.Choice, Power: b.Power},
		m.Config.MaxPower,
	)

	// One resolution per round. Equal calls make a drawn round: both right or
	// both wrong, nobody scores.
	var winner *Participant
	if a.Choice != b.Choice {
		if a.Choice == result {
			winner = a
		} else {
			winner = b
		}
	}

	round := Round{
		Number:     m.RoundNum,
		Target:     result,
		ResolvedAt: m.now(),
	}
	for _, p := range []*Participant{a, b} {
		round.Entries = append(round.Entries, RoundEntry{
			Player: p.ID,
			Choice: p.Choice,
			Power:  p.Power,
			Won:    winner == p,
		})
	}
	if winner != nil {
		winner.Wins++
		round.Winner = winner.ID
		m.lastLoser = m.opponent(winner).ID
	}
	m.History = append(m.History, round)

	events := []Event{{Type: EvtRoundResult, Round: &round}}

	if (winner != nil && winner.Wins >= m.Config.TargetWins) || m.RoundNum >= m.Config.MaxRounds {
		return append(events, m.completeDuel()...)
	}

	m.RoundNum++
	m.clearRound()
	m.Turn = ""
	m.Phase = PhaseAwaitingChoices
	return append(events, Event{Type: EvtRoundStart}, Event{Type: EvtStateUpdate})
}

func (m *Match) completeDuel() []Event {
	m.Phase = PhaseCompleted
	a, b := m.Participants[0], m.Participants[1]

	// Strictly greater win count decides; equal wins at max rounds is a
	// declared draw, not a coin flip.
	var winner string
	var draw bool
	switch {
	case a.Wins > b.Wins:
		winner = a.ID
	case b.Wins > a.Wins:
		winner = b.ID
	default:
		draw = true
	}
	return []Event{
		{Type: EvtMatchComplete, Winner: winner, Draw: draw},
		{Type: EvtStateUpdate},
	}
}
