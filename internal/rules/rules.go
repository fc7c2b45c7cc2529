// Package rules holds the scoring rule tables and the evaluator that applies
// them to a session.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/intent"
	"github.com/MikeSquared-Agency/ghostrev/internal/session"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

// Guard controls when a rule's once-key is consumed.
type Guard int

const (
	// PerPage rules carry no key and are evaluated on every page load.
	PerPage Guard = iota
	// OncePerSession consumes the key when the rule fires.
	OncePerSession
	// OncePerCategory consumes the key the first time any rule sharing it
	// is evaluated, whether or not it matched.
	OncePerCategory
)

// Context is everything a predicate may read. It is built before a pass and
// not updated while the pass runs.
type Context struct {
	Signals    signals.Snapshot
	LoadedAt   time.Time
	Now        time.Time
	Interacted bool
	Hovered    int
	History    []session.Visit
	Event      signals.Event
}

// Elapsed is the time since the page loaded.
func (c Context) Elapsed() time.Duration { return c.Now.Sub(c.LoadedAt) }

// Rule is one scoring rule.
type Rule struct {
	Key   session.Flag
	Guard Guard
	Label string
	Delta int
	When  func(Context) bool
}

// Fired records a rule application.
type Fired struct {
	Key   session.Flag `json:"key,omitempty"`
	Label string       `json:"label"`
	Delta int          `json:"delta"`
	Score int          `json:"score"` // total after this rule
}

func (f Fired) String() string {
	return fmt.Sprintf("%+d: %s", f.Delta, f.Label)
}

// Evaluator applies rules to session state.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate runs one pass over rules. Once-keys are read before the first rule
// runs, so no rule in the pass observes another rule's effect. Each firing
// is persisted as it happens.
func (e *Evaluator) Evaluate(ctx context.Context, st *session.State, rules []Rule, c Context) []Fired {
	settled := make(map[session.Flag]bool)
	for _, r := range rules {
		if r.Guard == PerPage || r.Key == "" {
			continue
		}
		if _, seen := settled[r.Key]; !seen {
			settled[r.Key] = st.Has(ctx, r.Key)
		}
	}

	var fired []Fired
	var consume []session.Flag
	consumed := make(map[session.Flag]bool)
	markLater := func(f session.Flag) {
		if !consumed[f] {
			consumed[f] = true
			consume = append(consume, f)
		}
	}

	for _, r := range rules {
		guarded := r.Guard != PerPage && r.Key != ""
		if guarded && settled[r.Key] {
			continue
		}
		if guarded && r.Guard == OncePerCategory {
			markLater(r.Key)
		}
		if !holds(r, c) {
			continue
		}
		score := st.AddScore(ctx, r.Delta)
		f := Fired{Key: r.Key, Label: r.Label, Delta: r.Delta, Score: score}
		fired = append(fired, f)
		if guarded && r.Guard == OncePerSession {
			markLater(r.Key)
		}
		e.logger.Debug("rule fired",
			"session_id", st.ID(),
			"rule", f.String(),
			"score", score,
			"tier", string(intent.Classify(score)),
		)
	}

	for _, f := range consume {
		st.Mark(ctx, f)
	}
	return fired
}

// holds evaluates the predicate. A panicking predicate counts as false.
func holds(r Rule, c Context) (ok bool) {
	if r.When == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return r.When(c)
}
