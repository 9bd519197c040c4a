package domain

import "time"

// Compliance is the outcome of evaluating a single rule against a snapshot.
type Compliance string

const (
	Compliant     Compliance = "COMPLIANT"
	NonCompliant  Compliance = "NON_COMPLIANT"
	NotApplicable Compliance = "NOT_APPLICABLE"
)

// Predicate evaluates a snapshot against a single rule. Predicates must be
// pure functions of the snapshot: no I/O, no shared state. A predicate that
// needs an attribute the snapshot does not carry returns NotApplicable.
type Predicate func(snapshot ResourceSnapshot) (Compliance, string)

// TargetConfig describes the state a remediation action converges a
// resource towards. Keys mirror snapshot attribute names; the provider
// owns the translation into concrete API mutations.
type TargetConfig map[string]any

// RemediationAction is a named, idempotent corrective operation. Target
// computes the desired state from the offending snapshot; the dispatcher
// hands the result to the provider's Apply.
type RemediationAction struct {
	Name   string
	Target func(snapshot ResourceSnapshot) TargetConfig
}

// Rule couples a compliance predicate with the resource types it applies
// to and an optional bound remediation action. Rules are registered once
// at startup and are immutable afterwards; the registry shares them
// read-only across all resource pipelines.
type Rule struct {
	Name          string
	Description   string
	ResourceTypes []string
	Predicate     Predicate
	Action        *RemediationAction
}

// AppliesTo reports whether the rule's resource-type filter matches.
func (r Rule) AppliesTo(resourceType string) bool {
	for _, t := range r.ResourceTypes {
		if t == resourceType {
			return true
		}
	}
	return false
}

// Verdict is the result of one rule evaluation. Verdicts are created per
// evaluation and never mutated.
type Verdict struct {
	Rule        string
	Compliance  Compliance
	Reason      string
	Snapshot    ResourceSnapshot
	EvaluatedAt time.Time
}
