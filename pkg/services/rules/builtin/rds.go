package builtin

import (
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// RDSNotPublic flags database instances reachable from the public
// internet and remediates by flipping them private.
func RDSNotPublic() domain.Rule {
	return domain.Rule{
		Name:          "rds-not-public",
		Description:   "RDS instances must not be publicly accessible",
		ResourceTypes: []string{domain.ResourceTypeDBInstance},
		Predicate: func(s domain.ResourceSnapshot) (domain.Compliance, string) {
			public, ok := s.BoolAttr("publiclyAccessible")
			if !ok {
				return domain.NotApplicable, "snapshot carries no publiclyAccessible flag"
			}
			if public {
				return domain.NonCompliant, "db instance is publicly accessible"
			}
			return domain.Compliant, "db instance is private"
		},
		Action: &domain.RemediationAction{
			Name: "disable-public-access",
			Target: func(_ domain.ResourceSnapshot) domain.TargetConfig {
				return domain.TargetConfig{"publiclyAccessible": false}
			},
		},
	}
}
