package builtin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

var policyArnPattern = regexp.MustCompile(`^arn:(aws[a-zA-Z-]*)?:iam::(aws|\d{12}):policy/[a-zA-Z0-9-_/]+$`)

// IAMPolicyRequiredParams parameterizes the iam-policy-required rule.
type IAMPolicyRequiredParams struct {
	// PolicyArns lists the managed policies every role and user must have
	// attached, directly or (for users) through a group.
	PolicyArns []string
	// ExemptRoles and ExemptUsers are compliant by default.
	ExemptRoles []string
	ExemptUsers []string
}

// IAMPolicyRequired checks that IAM roles and users carry a mandatory set
// of managed policies. Entities on the exception list report compliant
// without inspection.
func IAMPolicyRequired(params IAMPolicyRequiredParams) (domain.Rule, error) {
	if len(params.PolicyArns) == 0 {
		return domain.Rule{}, fmt.Errorf("iam-policy-required: at least one policy ARN is required")
	}
	for _, arn := range params.PolicyArns {
		if !policyArnPattern.MatchString(arn) {
			return domain.Rule{}, fmt.Errorf("iam-policy-required: invalid policy ARN %q", arn)
		}
	}

	exemptRoles := toSet(params.ExemptRoles)
	exemptUsers := toSet(params.ExemptUsers)
	required := append([]string(nil), params.PolicyArns...)

	return domain.Rule{
		Name:          "iam-policy-required",
		Description:   "IAM roles and users must have the mandatory managed policies attached",
		ResourceTypes: []string{domain.ResourceTypeIAMRole, domain.ResourceTypeIAMUser},
		Predicate: func(s domain.ResourceSnapshot) (domain.Compliance, string) {
			if isExempt(s.Ref, exemptRoles, exemptUsers) {
				return domain.Compliant, "IAM entity is on the exception list"
			}

			attached, ok := s.StringsAttr("attachedPolicies")
			if !ok {
				return domain.NotApplicable, "snapshot carries no attached policies"
			}

			missing := missingPolicies(attached, required)
			if len(missing) > 0 {
				return domain.NonCompliant, fmt.Sprintf("missing required policies: %s", strings.Join(missing, ", "))
			}
			return domain.Compliant, "all required policies attached"
		},
		Action: &domain.RemediationAction{
			Name: "attach-required-policies",
			Target: func(_ domain.ResourceSnapshot) domain.TargetConfig {
				return domain.TargetConfig{"attachedPolicies": required}
			},
		},
	}, nil
}

func isExempt(ref domain.ResourceRef, exemptRoles, exemptUsers map[string]struct{}) bool {
	switch ref.Type {
	case domain.ResourceTypeIAMRole:
		_, ok := exemptRoles[ref.ID]
		return ok
	case domain.ResourceTypeIAMUser:
		_, ok := exemptUsers[ref.ID]
		return ok
	}
	return false
}

func missingPolicies(attached, required []string) []string {
	have := make(map[string]struct{}, len(attached))
	for _, arn := range attached {
		have[arn] = struct{}{}
	}
	var missing []string
	for _, arn := range required {
		if _, ok := have[arn]; !ok {
			missing = append(missing, arn)
		}
	}
	return missing
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
