package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flipside-gg/arena-backend/internal/config"
	"github.com/flipside-gg/arena-backend/internal/engine"
	"github.com/flipside-gg/arena-backend/internal/registry"
)

type createMatchRequest struct {
	Variant           string   `json:"variant"`
	Players           []string `json:"players,omitempty"`
	DepositsConfirmed bool     `json:"deposits_confirmed"`
	Capacity          int      `json:"capacity,omitempty"`
	TargetWins        int      `json:"target_wins,omitempty"`
	MaxRounds         int      `json:"max_rounds,omitempty"`
	Lives             int      `json:"lives,omitempty"`
}

type createMatchResponse struct {
	MatchID string `json:"match_id"`
	Variant string `json:"variant"`
}

// CreateMatch spins up a match actor. Settlement is not this service's job:
// the caller (the wallet backend) asserts that deposits cleared, and we only
// refuse to create a match it hasn't vouched for.
func CreateMatch(reg *registry.Registry, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "bad json")
			return
		}
		if !req.DepositsConfirmed {
			httpError(w, http.StatusBadRequest, "deposits not confirmed")
			return
		}

		spec := registry.CreateSpec{ID: uuid.NewString()}
		switch engine.Variant(req.Variant) {
		case engine.VariantDuel:
			mc := engine.DefaultDuelConfig()
			mc.RoundTimeout = cfg.RoundTimeout
			mc.ChargeTimeout = cfg.ChargeTimeout
			mc.ResultDelay = cfg.ResultDelay
			if req.TargetWins > 0 {
				mc.TargetWins = req.TargetWins
			} else {
				mc.TargetWins = cfg.DuelTargetWins
			}
			if req.MaxRounds > 0 {
				mc.MaxRounds = req.MaxRounds
			} else {
				mc.MaxRounds = cfg.DuelMaxRounds
			}
			spec.Config = mc
			spec.Players = req.Players
		case engine.VariantRoyale:
			mc := engine.DefaultRoyaleConfig()
			mc.RoundTimeout = cfg.RoundTimeout
			mc.StartCountdown = cfg.StartCountdown
			mc.ResultDelay = cfg.ResultDelay
			mc.FillTimeout = cfg.FillTimeout
			if req.Capacity > 1 {
				mc.Capacity = req.Capacity
			} else {
				mc.Capacity = cfg.RoyaleCapacity
			}
			if req.Lives > 0 {
				mc.Lives = req.Lives
			} else {
				mc.Lives = cfg.RoyaleLives
			}
			spec.Config = mc
		default:
			httpError(w, http.StatusBadRequest, "unknown variant")
			return
		}

		reply := make(chan registry.CreateReply, 1)
		reg.Inbox() <- registry.Create{Spec: spec, Reply: reply}
		res := <-reply
		if res.Err != nil {
			if errors.Is(res.Err, registry.ErrAlreadyExists) {
				httpError(w, http.StatusConflict, "match already exists")
				return
			}
			log.Warn("match creation rejected", zap.Error(res.Err))
			httpError(w, http.StatusBadRequest, res.Err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createMatchResponse{
			MatchID: spec.ID,
			Variant: string(spec.Config.Variant),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
