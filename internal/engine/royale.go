package engine

// Battle-royale flow: filling -> starting -> round_active -> round_result and
// back around until one participant is left. Every round flips one shared
// fair target; actives who called it wrong lose a life and drop out at zero.

// Join seats a player into the first empty slot while the match is filling.
// Joining twice with the same address is a no-op success.
func (m *Match) Join(player string) ([]Event, error) {
	if m.Variant != VariantRoyale {
		return nil, ErrInvalidPhase
	}
	if m.Phase == PhaseStarting {
		return nil, ErrMatchFull
	}
	if m.Phase != PhaseFilling {
		return nil, ErrInvalidPhase
	}
	id := NormalizeID(player)
	if id == "" {
		return nil, ErrNotParticipant
	}
	if _, ok := m.byID[id]; ok {
		m.Touch(id)
		return nil, nil
	}
	if err := m.addParticipant(id); err != nil {
		return nil, err
	}
	if len(m.Participants) == m.Config.Capacity {
		m.Phase = PhaseStarting
	}
	return []Event{{Type: EvtStateUpdate}}, nil
}

func (m *Match) royaleSubmitChoice(p *Participant, c Choice) ([]Event, error) {
	if m.Phase != PhaseRoundActive {
		return nil, ErrInvalidPhase
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	if p.Committed {
		return nil, ErrAlreadyCommitted
	}
	p.Choice = c
	return []Event{{Type: EvtStateUpdate}}, nil
}

func (m *Match) royaleSubmitPower(p *Participant, power int) ([]Event, error) {
	if m.Phase != PhaseRoundActive {
		return nil, ErrInvalidPhase
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	if p.Choice == ChoiceNone {
		return nil, ErrNoChoice
	}
	p.Power = clampPower(m.Config, power)
	p.PowerSet = true
	return []Event{{Type: EvtStateUpdate}}, nil
}

// CommitFlip locks a participant's call for the running round. The round ends
// early when the last active participant commits.
func (m *Match) CommitFlip(player string) ([]Event, error) {
	if m.Variant != VariantRoyale {
		return nil, ErrInvalidPhase
	}
	if m.Phase != PhaseRoundActive {
		return nil, ErrInvalidPhase
	}
	p, err := m.participant(player)
	if err != nil {
		return nil, err
	}
	if p.Eliminated {
		return nil, ErrEliminated
	}
	if p.Choice == ChoiceNone {
		return nil, ErrNoChoice
	}
	if p.Committed {
		return nil, ErrAlreadyCommitted
	}
	p.Committed = true

	for _, a := range m.active() {
		if !a.Committed {
			return []Event{{Type: EvtStateUpdate}}, nil
		}
	}
	return m.endRoyaleRound(), nil
}

func (m *Match) royaleTimeout() []Event {
	switch m.Phase {
	case PhaseFilling:
		// Never filled within the window: cancel instead of holding the
		// actor open for deposits that aren't coming.
		m.Phase = PhaseCompleted
		return []Event{
			{Type: EvtMatchError, Reason: "match never filled"},
			{Type: EvtStateUpdate},
		}
	case PhaseStarting:
		return m.beginRoyaleRound()
	case PhaseRoundActive:
		for _, p := range m.active() {
			if !p.Committed {
				if p.Choice == ChoiceNone {
					p.Choice = m.res.Flip()
				}
				p.Committed = true
			}
		}
		return m.endRoyaleRound()
	case PhaseRoundResult:
		return m.beginRoyaleRound()
	default:
		return nil
	}
}

func (m *Match) beginRoyaleRound() []Event {
	if m.replay {
		m.replay = false
	} else {
		m.RoundNum++
		m.Retries = 0
	}
	m.clearRound()
	m.Phase = PhaseRoundActive
	return []Event{{Type: EvtRoundStart}, {Type: EvtStateUpdate}}
}

func (m *Match) endRoyaleRound() []Event {
	target := m.res.Flip()
	actives := m.active()

	survivors := 0
	for _, p := range actives {
		if p.Choice == target || p.Lives > 1 {
			survivors++
		}
	}

	entries := make([]RoundEntry, 0, len(actives))
	for _, p := range actives {
		entries = append(entries, RoundEntry{
			Player: p.ID,
			Choice: p.Choice,
			Power:  p.Power,
			Won:    p.Choice == target,
		})
	}

	if survivors == 0 {
		// Tie rule: a pass that would wipe out every remaining active is
		// voided and the round is replayed with a fresh target. Voided passes
		// never reach history, so round numbering stays gapless.
		m.replay = true
		m.Retries++
		round := Round{
			Number:     m.RoundNum,
			Target:     target,
			Entries:    entries,
			Replay:     true,
			ResolvedAt: m.now(),
		}
		m.Phase = PhaseRoundResult
		return []Event{{Type: EvtRoundResult, Round: &round}, {Type: EvtStateUpdate}}
	}

	var eliminated []string
	for _, p := range actives {
		if p.Choice != target {
			p.Lives--
			if p.Lives <= 0 {
				p.Eliminated = true
				eliminated = append(eliminated, p.ID)
			}
		} else {
			p.Wins++
		}
	}

	round := Round{
		Number:     m.RoundNum,
		Target:     target,
		Entries:    entries,
		Eliminated: eliminated,
		ResolvedAt: m.now(),
	}
	m.History = append(m.History, round)
	events := []Event{{Type: EvtRoundResult, Round: &round}}

	if remaining := m.active(); len(remaining) == 1 {
		m.Phase = PhaseCompleted
		return append(events,
			Event{Type: EvtMatchComplete, Winner: remaining[0].ID},
			Event{Type: EvtStateUpdate},
		)
	}
	m.Phase = PhaseRoundResult
	return append(events, Event{Type: EvtStateUpdate})
}
