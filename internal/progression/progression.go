// Package progression maps cumulative XP to a level and a rank title.
package progression

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoSteps       = errors.New("progression table is empty")
	ErrNonMonotonic  = errors.New("progression table is not monotonic")
	ErrInvalidStep   = errors.New("invalid progression step")
	ErrFirstStepNot0 = errors.New("first progression step must start at 0 XP")
)

// Progression is the derived standing of a user.
type Progression struct {
	Level int    `json:"level"`
	Rank  string `json:"rank"`
}

// Resolver derives level and rank from cumulative XP.
// Implementations must be monotonic: more XP never yields a lower level or an earlier rank.
type Resolver interface {
	Resolve(xp int64) Progression
}

// Step is one row of the table: from MinXP (inclusive) on, the user is at Level with Rank.
type Step struct {
	MinXP int64
	Level int
	Rank  string
}

type StepResolver struct {
	steps []Step
}

var _ Resolver = (*StepResolver)(nil)

func NewStepResolver(steps []Step) (*StepResolver, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if steps[0].MinXP != 0 {
		return nil, ErrFirstStepNot0
	}

	seenRanks := map[string]bool{}
	for i, s := range steps {
		if s.Level < 1 || s.Rank == "" {
			return nil, fmt.Errorf("%w: step %d", ErrInvalidStep, i)
		}
		if i == 0 {
			seenRanks[s.Rank] = true
			continue
		}

		prev := steps[i-1]
		if s.MinXP <= prev.MinXP {
			return nil, fmt.Errorf("%w: step %d min xp %d <= %d", ErrNonMonotonic, i, s.MinXP, prev.MinXP)
		}
		if s.Level < prev.Level {
			return nil, fmt.Errorf("%w: step %d level %d < %d", ErrNonMonotonic, i, s.Level, prev.Level)
		}
		if s.Rank != prev.Rank {
			// a rank left behind can never come back
			if seenRanks[s.Rank] {
				return nil, fmt.Errorf("%w: step %d rank %q repeats", ErrNonMonotonic, i, s.Rank)
			}
			seenRanks[s.Rank] = true
		}
	}

	return &StepResolver{
		steps: append([]Step(nil), steps...),
	}, nil
}

func (r *StepResolver) Resolve(xp int64) Progression {
	if xp < 0 {
		xp = 0
	}
	// first step with MinXP > xp, the one before it applies
	i := sort.Search(len(r.steps), func(i int) bool {
		return r.steps[i].MinXP > xp
	})
	s := r.steps[i-1]
	return Progression{Level: s.Level, Rank: s.Rank}
}

// Steps returns a copy of the table.
func (r *StepResolver) Steps() []Step {
	return append([]Step(nil), r.steps...)
}
