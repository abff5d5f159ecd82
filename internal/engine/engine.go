package engine

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidPhase = errors.New("action not valid in current phase")
var ErrNotParticipant = errors.New("player not in match")
var ErrWrongTurn = errors.New("not this player's turn")
var ErrNoChoice = errors.New("no choice submitted yet")
var ErrAlreadyCommitted = errors.New("already committed this round")
var ErrChoicesLocked = errors.New("both choices already locked")
var ErrMatchFull = errors.New("match is full")
var ErrEliminated = errors.New("player is eliminated")
var ErrBadChoice = errors.New("choice must be heads or tails")
var ErrBadConfig = errors.New("invalid match config")

type Variant string

const (
	VariantDuel   Variant = "duel"
	VariantRoyale Variant = "battle_royale"
)

type Choice string

const (
	ChoiceNone  Choice = ""
	ChoiceHeads Choice = "heads"
	ChoiceTails Choice = "tails"
)

// ParseChoice normalizes client input; anything but heads/tails is rejected.
func ParseChoice(s string) (Choice, bool) {
	switch Choice(strings.ToLower(strings.TrimSpace(s))) {
	case ChoiceHeads:
		return ChoiceHeads, true
	case ChoiceTails:
		return ChoiceTails, true
	default:
		return ChoiceNone, false
	}
}

type Phase string

const (
	// Duel phases.
	PhaseAwaitingChoices Phase = "awaiting_choices"
	PhasePowerCharging   Phase = "power_charging"
	PhaseResolving       Phase = "resolving"

	// Battle-royale phases.
	PhaseFilling     Phase = "filling"
	PhaseStarting    Phase = "starting"
	PhaseRoundActive Phase = "round_active"
	PhaseRoundResult Phase = "round_result"

	// Shared terminal phase.
	PhaseCompleted Phase = "completed"
)

type Config struct {
	Variant        Variant
	RoundTimeout   time.Duration
	ChargeTimeout  time.Duration
	StartCountdown time.Duration
	ResultDelay    time.Duration
	FillTimeout    time.Duration // royale: max time in filling before the match is cancelled
	TargetWins     int // duel: first to K round wins
	MaxRounds      int // duel
	Lives          int // battle royale
	Capacity       int
	MinPower       int
	MaxPower       int
}

func DefaultDuelConfig() Config {
	return Config{
		Variant:       VariantDuel,
		RoundTimeout:  30 * time.Second,
		ChargeTimeout: 15 * time.Second,
		ResultDelay:   3 * time.Second,
		TargetWins:    3,
		MaxRounds:     5,
		Capacity:      2,
		MinPower:      1,
		MaxPower:      10,
	}
}

func DefaultRoyaleConfig() Config {
	return Config{
		Variant:        VariantRoyale,
		RoundTimeout:   20 * time.Second,
		StartCountdown: 5 * time.Second,
		ResultDelay:    3 * time.Second,
		FillTimeout:    2 * time.Minute,
		Lives:          1,
		Capacity:       6,
		MinPower:       1,
		MaxPower:       10,
	}
}

// NormalizeID lowercases player addresses once at the boundary. All engine
// lookups assume ids already went through this.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

type Participant struct {
	ID         string
	Slot       int
	Choice     Choice
	Committed  bool
	Power      int
	PowerSet   bool
	Wins       int
	Lives      int
	Eliminated bool
	LastSeen   time.Time
}

type RoundEntry struct {
	Player string `json:"player"`
	Choice Choice `json:"choice"`
	Power  int    `json:"power"`
	Won    bool   `json:"won"`
}

// Round is immutable once resolved and is the unit handed to persistence.
type Round struct {
	Number     int          `json:"number"`
	Target     Choice       `json:"target"`
	Entries    []RoundEntry `json:"entries"`
	Winner     string       `json:"winner,omitempty"` // duel; empty on a drawn round
	Eliminated []string     `json:"eliminated,omitempty"`
	Replay     bool         `json:"replay,omitempty"` // voided all-out elimination pass
	ResolvedAt time.Time    `json:"resolved_at"`
}

type EventType string

const (
	EvtStateUpdate   EventType = "state_update"
	EvtRoundStart    EventType = "round_start"
	EvtRoundResult   EventType = "round_result"
	EvtMatchComplete EventType = "match_complete"
	EvtMatchError    EventType = "match_error"
)

// Event is what an applied operation asks the actor to broadcast. Sequence
// numbers are stamped by the actor, not here.
type Event struct {
	Type   EventType
	Round  *Round
	Winner string
	Draw   bool
	Reason string
}

type Match struct {
	ID           string
	Variant      Variant
	Phase        Phase
	Config       Config
	CreatedAt    time.Time
	RoundNum     int
	Turn         string // duel: who charges power next
	Retries      int    // royale: tie replays of the current round
	Participants []*Participant
	History      []Round

	lastLoser string
	replay    bool
	byID      map[string]*Participant
	res       *Resolver
	now       func() time.Time
}

// NewDuel builds a 1v1 match. Both players are known up front: deposit
// confirmation gates creation and happens outside this package. The creator
// takes slot 0 and charges first in round 1.
func NewDuel(id string, cfg Config, res *Resolver, creator, opponent string) (*Match, error) {
	cfg.Variant = VariantDuel
	if err := validate(cfg); err != nil {
		return nil, err
	}
	m := newMatch(id, cfg, res)
	m.Phase = PhaseAwaitingChoices
	m.RoundNum = 1
	if err := m.addParticipant(creator); err != nil {
		return nil, err
	}
	if NormalizeID(creator) == NormalizeID(opponent) {
		return nil, ErrBadConfig
	}
	if err := m.addParticipant(opponent); err != nil {
		return nil, err
	}
	return m, nil
}

// NewRoyale builds an empty battle-royale match in the filling phase.
func NewRoyale(id string, cfg Config, res *Resolver) (*Match, error) {
	cfg.Variant = VariantRoyale
	if err := validate(cfg); err != nil {
		return nil, err
	}
	m := newMatch(id, cfg, res)
	m.Phase = PhaseFilling
	return m, nil
}

func newMatch(id string, cfg Config, res *Resolver) *Match {
	return &Match{
		ID:        id,
		Variant:   cfg.Variant,
		Config:    cfg,
		CreatedAt: time.Now(),
		byID:      make(map[string]*Participant),
		res:       res,
		now:       time.Now,
	}
}

func validate(cfg Config) error {
	if cfg.Capacity < 2 {
		return ErrBadConfig
	}
	if cfg.MinPower < 0 || cfg.MaxPower <= cfg.MinPower {
		return ErrBadConfig
	}
	if cfg.Variant == VariantDuel && (cfg.TargetWins < 1 || cfg.MaxRounds < cfg.TargetWins) {
		return ErrBadConfig
	}
	if cfg.Variant == VariantRoyale && cfg.Lives < 1 {
		return ErrBadConfig
	}
	return nil
}

func (m *Match) addParticipant(id string) error {
	id = NormalizeID(id)
	if id == "" {
		return ErrNotParticipant
	}
	if _, ok := m.byID[id]; ok {
		return nil // idempotent
	}
	if len(m.Participants) >= m.Config.Capacity {
		return ErrMatchFull
	}
	p := &Participant{
		ID:       id,
		Slot:     len(m.Participants),
		Lives:    m.Config.Lives,
		LastSeen: m.now(),
	}
	m.Participants = append(m.Participants, p)
	m.byID[id] = p
	return nil
}

func (m *Match) participant(id string) (*Participant, error) {
	p, ok := m.byID[NormalizeID(id)]
	if !ok {
		return nil, ErrNotParticipant
	}
	p.LastSeen = m.now()
	return p, nil
}

// Touch records activity for disconnect accounting without mutating game state.
func (m *Match) Touch(id string) {
	if p, ok := m.byID[NormalizeID(id)]; ok {
		p.LastSeen = m.now()
	}
}

func (m *Match) active() []*Participant {
	out := make([]*Participant, 0, len(m.Participants))
	for _, p := range m.Participants {
		if !p.Eliminated {
			out = append(out, p)
		}
	}
	return out
}

func (m *Match) clearRound() {
	for _, p := range m.Participants {
		p.Choice = ChoiceNone
		p.Committed = false
		p.Power = 0
		p.PowerSet = false
	}
}

func clampPower(cfg Config, power int) int {
	if power < cfg.MinPower {
		return cfg.MinPower
	}
	if power > cfg.MaxPower {
		return cfg.MaxPower
	}
	return power
}
