package builtin

import (
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

const openCIDR = "0.0.0.0/0"

// NoOpenSSH flags security groups that allow inbound SSH from anywhere
// and remediates by revoking the offending ingress rules.
func NoOpenSSH() domain.Rule {
	return domain.Rule{
		Name:          "no-open-ssh",
		Description:   "Security groups must not expose port 22 to 0.0.0.0/0",
		ResourceTypes: []string{domain.ResourceTypeSecurityGroup},
		Predicate: func(s domain.ResourceSnapshot) (domain.Compliance, string) {
			ingress, ok := s.IngressAttr("ingress")
			if !ok {
				return domain.NotApplicable, "snapshot carries no ingress rules"
			}
			for _, rule := range ingress {
				if rule.CIDR == openCIDR && rule.CoversPort(22) {
					return domain.NonCompliant, "port 22 open to 0.0.0.0/0"
				}
			}
			return domain.Compliant, "no ssh ingress from 0.0.0.0/0"
		},
		Action: &domain.RemediationAction{
			Name: "revoke-open-ssh",
			Target: func(s domain.ResourceSnapshot) domain.TargetConfig {
				ingress, _ := s.IngressAttr("ingress")
				keep := make([]domain.IngressRule, 0, len(ingress))
				for _, rule := range ingress {
					if rule.CIDR == openCIDR && rule.CoversPort(22) {
						continue
					}
					keep = append(keep, rule)
				}
				return domain.TargetConfig{"ingress": keep}
			},
		},
	}
}
