package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/flipside-gg/arena-backend/internal/engine"
)

// Summary is what the engine knows about a finished match; settlement and
// payout bookkeeping live elsewhere.
type Summary struct {
	Variant      engine.Variant
	Participants []string
	Rounds       int
	Winner       string
	Draw         bool
	Duration     time.Duration
}

// Gateway is the persistence contract consumed by match actors. Both calls
// are fire-and-forget from the actor's perspective: failures are logged and
// never block game progression.
type Gateway interface {
	AppendRound(ctx context.Context, matchID string, r engine.Round) error
	FinalizeMatch(ctx context.Context, matchID string, s Summary) error
}

// Nop discards everything; used when no DATABASE_URL is configured and in
// tests that don't care about persistence.
type Nop struct{}

func (Nop) AppendRound(context.Context, string, engine.Round) error { return nil }
func (Nop) FinalizeMatch(context.Context, string, Summary) error    { return nil }

var _ Gateway = Nop{}
var _ Gateway = (*Postgres)(nil)

type MatchRecord struct {
	ID           string `gorm:"primaryKey"`
	Variant      string
	Participants string // json array of player ids
	Rounds       int
	Winner       string
	Draw         bool
	DurationMS   int64
	FinishedAt   time.Time
}

type RoundRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	MatchID    string `gorm:"index"`
	Number     int
	Target     string
	Winner     string
	Entries    string // json, per-participant choice/power/result
	Eliminated string // json array
	ResolvedAt time.Time
}

// Postgres persists completed rounds and matches through gorm.
type Postgres struct {
	db *gorm.DB
}

func Open(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MatchRecord{}, &RoundRecord{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) AppendRound(ctx context.Context, matchID string, r engine.Round) error {
	entries, err := json.Marshal(r.Entries)
	if err != nil {
		return err
	}
	eliminated, err := json.Marshal(r.Eliminated)
	if err != nil {
		return err
	}
	rec := RoundRecord{
		MatchID:    matchID,
		Number:     r.Number,
		Target:     string(r.Target),
		Winner:     r.Winner,
		Entries:    string(entries),
		Eliminated: string(eliminated),
		ResolvedAt: r.ResolvedAt,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *Postgres) FinalizeMatch(ctx context.Context, matchID string, sum Summary) error {
	participants, err := json.Marshal(sum.Participants)
	if err != nil {
		return err
	}
	rec := MatchRecord{
		ID:           matchID,
		Variant:      string(sum.Variant),
		Participants: string(participants),
		Rounds:       sum.Rounds,
		Winner:       sum.Winner,
		Draw:         sum.Draw,
		DurationMS:   sum.Duration.Milliseconds(),
		FinishedAt:   time.Now(),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}
