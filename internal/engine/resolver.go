package engine

import "math/rand"

// Policy picks how a flip result relates to accumulated power. The policy is
// fixed per variant: battle royale targets are always fair, duels are
// power-weighted. Never use the weighted policy for anything advertised as
// 50/50 odds.
type Policy string

const (
	PolicyFair     Policy = "fair"
	PolicyWeighted Policy = "power_weighted"
)

// MaxSkew bounds the weighted policy: at maximum power difference the flip is
// skewed at most this far from 0.5 toward the stronger side's call.
const MaxSkew = 0.15

// Resolver turns choices and power into flip results. The rand source is
// injected so resolution is replayable from a seed for dispute audits; there
// is no package-level randomness anywhere in the engine.
type Resolver struct {
	policy Policy
	rng    *rand.Rand
}

func NewResolver(policy Policy, rng *rand.Rand) *Resolver {
	return &Resolver{policy: policy, rng: rng}
}

func (r *Resolver) Policy() Policy { return r.policy }

// Flip is an unbiased coin flip, used for battle-royale round targets and for
// every auto-assigned choice.
func (r *Resolver) Flip() Choice {
	if r.rng.Intn(2) == 0 {
		return ChoiceHeads
	}
	return ChoiceTails
}

// RandomPower draws a uniform power in [min,max] for charge timeouts.
func (r *Resolver) RandomPower(min, max int) int {
	return min + r.rng.Intn(max-min+1)
}

// Resolve decides a single flip for one acting side and reports whether the
// call was correct. Under the fair policy power is cosmetic only.
func (r *Resolver) Resolve(choice Choice, power, maxPower int) (Choice, bool) {
	p := 0.5
	if r.policy == PolicyWeighted && maxPower > 0 {
		p += MaxSkew * float64(power) / float64(maxPower)
	}
	result := other(choice)
	if r.rng.Float64() < p {
		result = choice
	}
	return result, result == choice
}

type DuelEntry struct {
	Choice Choice
	Power  int
}

// ResolveDuel flips one coin for a whole duel round. When the calls differ
// and the policy is weighted, the result is skewed toward the side with more
// power, bounded by MaxSkew at maximal power difference. Equal calls fall
// back to a fair flip: the skews would cancel anyway.
func (r *Resolver) ResolveDuel(a, b DuelEntry, maxPower int) Choice {
	if r.policy != PolicyWeighted || a.Choice == b.Choice || maxPower <= 0 {
		if r.rng.Intn(2) == 0 {
			return a.Choice
		}
		return other(a.Choice)
	}
	p := 0.5 + MaxSkew*float64(a.Power-b.Power)/float64(maxPower)
	if r.rng.Float64() < p {
		return a.Choice
	}
	return b.Choice
}

func other(c Choice) Choice {
	if c == ChoiceHeads {
		return ChoiceTails
	}
	return ChoiceHeads
}
