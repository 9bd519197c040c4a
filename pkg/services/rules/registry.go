package rules

import (
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Registry holds the rule set in registration order. It is built once at
// startup and immutable afterwards, so all resource pipelines share it
// without locking.
type Registry struct {
	rules  []domain.Rule
	byName map[string]domain.Rule
}

func NewRegistry(rules ...domain.Rule) (*Registry, error) {
	r := &Registry{
		rules:  make([]domain.Rule, 0, len(rules)),
		byName: make(map[string]domain.Rule, len(rules)),
	}
	for _, rule := range rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule name cannot be empty")
		}
		if rule.Predicate == nil {
			return nil, fmt.Errorf("rule %q has no predicate", rule.Name)
		}
		if len(rule.ResourceTypes) == 0 {
			return nil, fmt.Errorf("rule %q applies to no resource types", rule.Name)
		}
		if _, exists := r.byName[rule.Name]; exists {
			return nil, fmt.Errorf("rule %q is already registered", rule.Name)
		}
		r.rules = append(r.rules, rule)
		r.byName[rule.Name] = rule
	}
	return r, nil
}

// Rules returns the full rule set in registration order.
func (r *Registry) Rules() []domain.Rule {
	out := make([]domain.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Get looks a rule up by name.
func (r *Registry) Get(name string) (domain.Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// ForType returns the rules applicable to a resource type, in
// registration order.
func (r *Registry) ForType(resourceType string) []domain.Rule {
	var out []domain.Rule
	for _, rule := range r.rules {
		if rule.AppliesTo(resourceType) {
			out = append(out, rule)
		}
	}
	return out
}

// ResourceTypes returns the distinct resource types the rule set covers.
func (r *Registry) ResourceTypes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rule := range r.rules {
		for _, t := range rule.ResourceTypes {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
