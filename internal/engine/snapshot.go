package engine

import "time"

// Client timers are cosmetic: the snapshot carries phase durations so clients
// can count down locally, while the server timer stays authoritative.

type ParticipantView struct {
	ID         string `json:"id"`
	Slot       int    `json:"slot"`
	Choice     Choice `json:"choice,omitempty"`
	Committed  bool   `json:"committed,omitempty"`
	Power      int    `json:"power,omitempty"`
	Wins       int    `json:"wins"`
	Lives      int    `json:"lives,omitempty"`
	Eliminated bool   `json:"eliminated,omitempty"`
}

type Snapshot struct {
	MatchID      string            `json:"match_id"`
	Variant      Variant           `json:"variant"`
	Phase        Phase             `json:"phase"`
	Round        int               `json:"round"`
	Retries      int               `json:"retries,omitempty"`
	Turn         string            `json:"turn,omitempty"`
	Capacity     int               `json:"capacity"`
	PhaseTimeSec int               `json:"phase_time_sec,omitempty"`
	Participants []ParticipantView `json:"participants"`
	LastRound    *Round            `json:"last_round,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Snapshot builds the full client-facing view broadcast as state_update.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		MatchID:   m.ID,
		Variant:   m.Variant,
		Phase:     m.Phase,
		Round:     m.RoundNum,
		Retries:   m.Retries,
		Turn:      m.Turn,
		Capacity:  m.Config.Capacity,
		CreatedAt: m.CreatedAt,
	}
	if d, ok := m.PhaseTimeout(); ok {
		s.PhaseTimeSec = int(d / time.Second)
	}
	for _, p := range m.Participants {
		s.Participants = append(s.Participants, ParticipantView{
			ID:         p.ID,
			Slot:       p.Slot,
			Choice:     p.Choice,
			Committed:  p.Committed,
			Power:      p.Power,
			Wins:       p.Wins,
			Lives:      p.Lives,
			Eliminated: p.Eliminated,
		})
	}
	if n := len(m.History); n > 0 {
		last := m.History[n-1]
		s.LastRound = &last
	}
	return s
}
