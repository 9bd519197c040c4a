package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Evaluator applies the registered rules to snapshots. Evaluation is
// CPU-only and never blocks; verdict order always follows rule
// registration order so reports are reproducible.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate runs every rule whose resource-type filter matches the
// snapshot. A predicate panic on malformed input is contained to that
// rule: it is logged as an EvaluationError and the rule yields
// NOT_APPLICABLE, leaving the remaining rules untouched.
func (e *Evaluator) Evaluate(ctx context.Context, snapshot domain.ResourceSnapshot) []domain.Verdict {
	matching := e.registry.ForType(snapshot.Ref.Type)
	verdicts := make([]domain.Verdict, 0, len(matching))

	for _, rule := range matching {
		compliance, reason := e.evaluateOne(ctx, rule, snapshot)
		verdicts = append(verdicts, domain.Verdict{
			Rule:        rule.Name,
			Compliance:  compliance,
			Reason:      reason,
			Snapshot:    snapshot,
			EvaluatedAt: time.Now(),
		})
	}
	return verdicts
}

func (e *Evaluator) evaluateOne(
	ctx context.Context,
	rule domain.Rule,
	snapshot domain.ResourceSnapshot,
) (compliance domain.Compliance, reason string) {
	defer func() {
		if r := recover(); r != nil {
			evalErr := &domain.EvaluationError{
				Rule: rule.Name,
				Err:  fmt.Errorf("predicate panicked: %v", r),
			}
			zerolog.Ctx(ctx).Error().
				Err(evalErr).
				Str("resource", snapshot.Ref.Key()).
				Msg("rule evaluation failed")
			compliance = domain.NotApplicable
			reason = "rule evaluation failed on malformed input"
		}
	}()

	return rule.Predicate(snapshot)
}
