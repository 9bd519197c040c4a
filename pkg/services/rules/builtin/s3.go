package builtin

import (
	"fmt"
	"strings"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

var publicAccessFlags = []string{
	"blockPublicAcls",
	"ignorePublicAcls",
	"blockPublicPolicy",
	"restrictPublicBuckets",
}

// S3BlockPublicAccess requires all four public-access-block flags on a
// bucket and remediates by enabling the missing ones.
func S3BlockPublicAccess() domain.Rule {
	return domain.Rule{
		Name:          "s3-block-public-access",
		Description:   "S3 buckets must block all public access",
		ResourceTypes: []string{domain.ResourceTypeS3Bucket},
		Predicate: func(s domain.ResourceSnapshot) (domain.Compliance, string) {
			var off []string
			for _, flag := range publicAccessFlags {
				enabled, ok := s.BoolAttr(flag)
				if !ok {
					return domain.NotApplicable, fmt.Sprintf("snapshot carries no %s flag", flag)
				}
				if !enabled {
					off = append(off, flag)
				}
			}
			if len(off) > 0 {
				return domain.NonCompliant, fmt.Sprintf("public access not blocked: %s disabled", strings.Join(off, ", "))
			}
			return domain.Compliant, "all public access block flags enabled"
		},
		Action: &domain.RemediationAction{
			Name: "enable-public-access-block",
			Target: func(_ domain.ResourceSnapshot) domain.TargetConfig {
				target := domain.TargetConfig{}
				for _, flag := range publicAccessFlags {
					target[flag] = true
				}
				return target
			},
		},
	}
}
