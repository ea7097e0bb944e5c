// Package decision holds the built-in Decision Function.
package decision

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/bryanwahyu/ayursense/internal/domain/session"
)

// DefaultSafeProbability is the reference stub's chance of a safe verdict.
const DefaultSafeProbability = 0.7

const (
	minConfidence  = 85
	confidenceSpan = 10
)

type templates struct {
	safe, unsafe string
}

var byCondition = map[session.ConditionKind]templates{
	session.ConditionBurnt: {
		safe:   "The pH level and mineral content are suitable for burn treatment.",
		unsafe: "The solution is too acidic and may irritate burned tissue.",
	},
	session.ConditionBeeSting: {
		safe:   "The alkaline properties help neutralize bee sting acidity.",
		unsafe: "High TDS levels indicate excessive minerals that may cause irritation.",
	},
}

var fallback = templates{
	safe:   "The solution properties fall within safe parameters for this condition.",
	unsafe: "One or more parameters are outside the safe range for application.",
}

// Reference is the stub Decision Function: a biased coin for Safe, a
// confidence drawn uniformly from [85,95] and rounded, and a fixed
// explanation per condition and outcome. Given the same seeded source it
// returns the same sequence of verdicts.
type Reference struct {
	safeProbability float64

	mu   sync.Mutex
	rand *rand.Rand
}

// NewReference builds a stub drawing from r. A nil r is seeded from the
// runtime source.
func NewReference(r *rand.Rand, safeProbability float64) *Reference {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Reference{safeProbability: safeProbability, rand: r}
}

func (d *Reference) Decide(ctx context.Context, w *session.SampleWindow, cond session.Condition) (session.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return session.Verdict{}, err
	}
	if w == nil || !w.Sealed() {
		return session.Verdict{}, session.ErrWindowNotSealed
	}
	if cond.IsZero() {
		return session.Verdict{}, session.ErrNoCondition
	}

	d.mu.Lock()
	safe := d.rand.Float64() < d.safeProbability
	confidence := math.Round(minConfidence + d.rand.Float64()*confidenceSpan)
	d.mu.Unlock()

	return session.Verdict{
		Safe:        safe,
		Confidence:  confidence,
		Explanation: Explain(cond.Kind(), safe),
	}, nil
}

// Explain returns the template sentence for kind and outcome.
func Explain(kind session.ConditionKind, safe bool) string {
	t, ok := byCondition[kind]
	if !ok {
		t = fallback
	}
	if safe {
		return t.safe
	}
	return t.unsafe
}
