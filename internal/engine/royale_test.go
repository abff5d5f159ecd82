package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func newTestRoyale(t *testing.T, cfg Config, seed int64) *Match {
	t.Helper()
	res := NewResolver(PolicyFair, rand.New(rand.NewSource(seed)))
	m, err := NewRoyale("royale-1", cfg, res)
	if err != nil {
		t.Fatalf("NewRoyale: %v", err)
	}
	return m
}

// probeTarget replays the match's rand stream to learn the nth round target
// ahead of time. Only round resolution consumes randomness on the
// commit-driven path, so the nth Flip is the nth target.
func probeTarget(seed int64, n int) Choice {
	res := NewResolver(PolicyFair, rand.New(rand.NewSource(seed)))
	var c Choice
	for i := 0; i < n; i++ {
		c = res.Flip()
	}
	return c
}

func opposite(c Choice) Choice {
	if c == ChoiceHeads {
		return ChoiceTails
	}
	return ChoiceHeads
}

func fillRoyale(t *testing.T, m *Match, n int) []string {
	t.Helper()
	players := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("0xplayer%d", i)
		if _, err := m.Join(id); err != nil {
			t.Fatalf("Join(%s): %v", id, err)
		}
		players = append(players, id)
	}
	return players
}

func TestRoyale_JoinAssignsSlotsInOrder(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	m := newTestRoyale(t, cfg, 1)
	fillRoyale(t, m, 3)

	for i, p := range m.Participants {
		if p.Slot != i {
			t.Fatalf("slot %d assigned to %s, want %d", p.Slot, p.ID, i)
		}
		if p.Lives != cfg.Lives {
			t.Fatalf("joined with %d lives, want %d", p.Lives, cfg.Lives)
		}
	}
	if m.Phase != PhaseFilling {
		t.Fatalf("3 of %d seats filled but phase=%s", cfg.Capacity, m.Phase)
	}
}

func TestRoyale_JoinIsIdempotent(t *testing.T) {
	m := newTestRoyale(t, DefaultRoyaleConfig(), 1)
	if _, err := m.Join("0xSamePlayer"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := m.Join("0xsameplayer"); err != nil {
		t.Fatalf("rejoin must be a no-op success, got %v", err)
	}
	if len(m.Participants) != 1 {
		t.Fatalf("rejoin duplicated the participant: %d", len(m.Participants))
	}
}

func TestRoyale_CapacityReachedStartsCountdown(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 2
	m := newTestRoyale(t, cfg, 1)
	fillRoyale(t, m, 2)

	if m.Phase != PhaseStarting {
		t.Fatalf("expected starting at capacity, got %s", m.Phase)
	}
	if _, err := m.Join("0xlate"); !errors.Is(err, ErrMatchFull) {
		t.Fatalf("late join: want ErrMatchFull, got %v", err)
	}

	m.HandleTimeout() // countdown elapses
	if m.Phase != PhaseRoundActive || m.RoundNum != 1 {
		t.Fatalf("expected round 1 active, got phase=%s round=%d", m.Phase, m.RoundNum)
	}
}

func TestRoyale_FillTimeoutCancelsMatch(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	m := newTestRoyale(t, cfg, 1)
	fillRoyale(t, m, 2) // short of capacity

	if d, ok := m.PhaseTimeout(); !ok || d != cfg.FillTimeout {
		t.Fatalf("filling phase must run the fill timer, got %v %v", d, ok)
	}

	events := m.HandleTimeout()
	if m.Phase != PhaseCompleted {
		t.Fatalf("unfilled match must be cancelled, got %s", m.Phase)
	}
	if !containsEvent(events, EvtMatchError) {
		t.Fatalf("expected match_error, got %+v", events)
	}
	if len(m.History) != 0 {
		t.Fatalf("cancelled match recorded history")
	}
	if _, err := m.Join("0xlate"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("join after cancellation: want ErrInvalidPhase, got %v", err)
	}
}

func TestRoyale_CommitRequiresChoice(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 2
	m := newTestRoyale(t, cfg, 1)
	players := fillRoyale(t, m, 2)
	m.HandleTimeout()

	if _, err := m.CommitFlip(players[0]); !errors.Is(err, ErrNoChoice) {
		t.Fatalf("want ErrNoChoice, got %v", err)
	}

	mustSubmitChoice(t, m, players[0], ChoiceHeads)
	if _, err := m.CommitFlip(players[0]); err != nil {
		t.Fatalf("commit with choice: %v", err)
	}
	if _, err := m.CommitFlip(players[0]); !errors.Is(err, ErrAlreadyCommitted) {
		t.Fatalf("double commit: want ErrAlreadyCommitted, got %v", err)
	}
}

func TestRoyale_LastCommitEndsRound(t *testing.T) {
	const seed = 11
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 2
	m := newTestRoyale(t, cfg, seed)
	players := fillRoyale(t, m, 2)
	m.HandleTimeout()

	target := probeTarget(seed, 1)
	mustSubmitChoice(t, m, players[0], target)
	mustSubmitChoice(t, m, players[1], opposite(target))

	if _, err := m.CommitFlip(players[0]); err != nil {
		t.Fatalf("commit p0: %v", err)
	}
	events, err := m.CommitFlip(players[1])
	if err != nil {
		t.Fatalf("commit p1: %v", err)
	}

	// one right, one wrong: the survivor wins the whole match
	if !containsEvent(events, EvtRoundResult) || !containsEvent(events, EvtMatchComplete) {
		t.Fatalf("expected round_result + match_complete, got %+v", events)
	}
	if m.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %s", m.Phase)
	}
	if got := m.History[0].Target; got != target {
		t.Fatalf("probed target %s, resolved %s", target, got)
	}
}

func TestRoyale_AllWrongVoidsEliminationAndReplays(t *testing.T) {
	const seed = 23
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 2
	m := newTestRoyale(t, cfg, seed)
	players := fillRoyale(t, m, 2)
	m.HandleTimeout()

	wrong := opposite(probeTarget(seed, 1))
	for _, p := range players {
		mustSubmitChoice(t, m, p, wrong)
		if _, err := m.CommitFlip(p); err != nil {
			t.Fatalf("commit %s: %v", p, err)
		}
	}

	if m.Phase != PhaseRoundResult {
		t.Fatalf("expected round_result, got %s", m.Phase)
	}
	if m.Retries != 1 {
		t.Fatalf("void must count a retry, got %d", m.Retries)
	}
	if len(m.History) != 0 {
		t.Fatalf("voided pass must not reach history")
	}
	for _, p := range m.Participants {
		if p.Eliminated || p.Lives != cfg.Lives {
			t.Fatalf("voided pass touched lives: %+v", p)
		}
	}

	m.HandleTimeout() // replay
	if m.Phase != PhaseRoundActive || m.RoundNum != 1 {
		t.Fatalf("replay must reuse round 1, got phase=%s round=%d", m.Phase, m.RoundNum)
	}
}

func TestRoyale_TimeoutAutoCommitsStragglers(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 3
	cfg.Lives = 2
	m := newTestRoyale(t, cfg, 5)
	players := fillRoyale(t, m, 3)
	m.HandleTimeout()

	mustSubmitChoice(t, m, players[0], ChoiceHeads)
	if _, err := m.CommitFlip(players[0]); err != nil {
		t.Fatalf("commit: %v", err)
	}

	m.HandleTimeout() // round timer: the two stragglers get auto choices

	if m.Phase != PhaseRoundResult && m.Phase != PhaseCompleted {
		t.Fatalf("round should have ended, phase=%s", m.Phase)
	}
	round := m.History
	if len(round) != 1 && m.Retries == 0 {
		t.Fatalf("expected a resolved round or a counted replay")
	}
	if len(round) == 1 {
		for _, e := range round[0].Entries {
			if e.Choice == ChoiceNone {
				t.Fatalf("auto-commit left an empty choice: %+v", e)
			}
			if e.Won != (e.Choice == round[0].Target) {
				t.Fatalf("entry won flag disagrees with target: %+v", e)
			}
		}
	}
}

func TestRoyale_LivesNeverIncrease(t *testing.T) {
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 4
	cfg.Lives = 3
	m := newTestRoyale(t, cfg, 77)
	fillRoyale(t, m, 4)
	m.HandleTimeout()

	last := map[string]int{}
	for _, p := range m.Participants {
		last[p.ID] = p.Lives
	}

	for i := 0; i < 40 && m.Phase != PhaseCompleted; i++ {
		m.HandleTimeout() // drive rounds purely on timers
		for _, p := range m.Participants {
			if p.Lives > last[p.ID] {
				t.Fatalf("%s lives went up: %d -> %d", p.ID, last[p.ID], p.Lives)
			}
			last[p.ID] = p.Lives
		}
	}
}

// The six-player brief scenario: four call the target, two miss, next round
// runs with four actives and a fresh target.
func TestRoyale_SixPlayerElimination(t *testing.T) {
	const seed = 31
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 6
	cfg.Lives = 1
	m := newTestRoyale(t, cfg, seed)
	players := fillRoyale(t, m, 6)
	m.HandleTimeout()

	target := probeTarget(seed, 1)
	for i, p := range players {
		c := target
		if i >= 4 {
			c = opposite(target)
		}
		mustSubmitChoice(t, m, p, c)
	}
	var events []Event
	for _, p := range players {
		var err error
		events, err = m.CommitFlip(p)
		if err != nil {
			t.Fatalf("commit %s: %v", p, err)
		}
	}

	if !containsEvent(events, EvtRoundResult) {
		t.Fatalf("expected round_result on last commit")
	}
	round := m.History[0]
	if len(round.Eliminated) != 2 {
		t.Fatalf("want 2 eliminations, got %v", round.Eliminated)
	}
	if got := len(m.active()); got != 4 {
		t.Fatalf("want 4 actives, got %d", got)
	}

	m.HandleTimeout() // result delay elapses
	if m.Phase != PhaseRoundActive || m.RoundNum != 2 {
		t.Fatalf("want round 2 active, got phase=%s round=%d", m.Phase, m.RoundNum)
	}
	if m.Retries != 0 {
		t.Fatalf("fresh round carried retries=%d", m.Retries)
	}
}

func TestRoyale_EliminatedCannotAct(t *testing.T) {
	const seed = 11
	cfg := DefaultRoyaleConfig()
	cfg.Capacity = 3
	m := newTestRoyale(t, cfg, seed)
	players := fillRoyale(t, m, 3)
	m.HandleTimeout()

	target := probeTarget(seed, 1)
	mustSubmitChoice(t, m, players[0], target)
	mustSubmitChoice(t, m, players[1], target)
	mustSubmitChoice(t, m, players[2], opposite(target))
	for _, p := range players {
		if _, err := m.CommitFlip(p); err != nil {
			t.Fatalf("commit %s: %v", p, err)
		}
	}
	m.HandleTimeout() // next round with 2 actives

	if _, err := m.SubmitChoice(players[2], target); !errors.Is(err, ErrEliminated) {
		t.Fatalf("want ErrEliminated, got %v", err)
	}
}
