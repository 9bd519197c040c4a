package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Provider implements providers.Provider on top of the AWS APIs. One
// provider instance serves a single region/account pair; the scheduler
// shares it read-only across all resource pipelines.
type Provider struct {
	ec2    *ec2.Client
	s3     *s3.Client
	rds    *rds.Client
	iam    *iam.Client
	region string
}

func NewProvider(cfg awssdk.Config) *Provider {
	return &Provider{
		ec2:    ec2.NewFromConfig(cfg),
		s3:     s3.NewFromConfig(cfg),
		rds:    rds.NewFromConfig(cfg),
		iam:    iam.NewFromConfig(cfg),
		region: cfg.Region,
	}
}

func (p *Provider) Fetch(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	switch ref.Type {
	case domain.ResourceTypeSecurityGroup:
		return p.fetchSecurityGroup(ctx, ref)
	case domain.ResourceTypeS3Bucket:
		return p.fetchBucket(ctx, ref)
	case domain.ResourceTypeDBInstance:
		return p.fetchDBInstance(ctx, ref)
	case domain.ResourceTypeIAMRole, domain.ResourceTypeIAMUser:
		return p.fetchIAMEntity(ctx, ref)
	default:
		return domain.ResourceSnapshot{}, fmt.Errorf("unsupported resource type %q", ref.Type)
	}
}

func (p *Provider) Apply(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	switch ref.Type {
	case domain.ResourceTypeSecurityGroup:
		return p.applySecurityGroup(ctx, ref, target)
	case domain.ResourceTypeS3Bucket:
		return p.applyBucket(ctx, ref, target)
	case domain.ResourceTypeDBInstance:
		return p.applyDBInstance(ctx, ref, target)
	case domain.ResourceTypeIAMRole, domain.ResourceTypeIAMUser:
		return p.applyIAMEntity(ctx, ref, target)
	default:
		return fmt.Errorf("unsupported resource type %q", ref.Type)
	}
}

func (p *Provider) List(ctx context.Context, resourceType string) ([]domain.ResourceRef, error) {
	switch resourceType {
	case domain.ResourceTypeSecurityGroup:
		return p.listSecurityGroups(ctx)
	case domain.ResourceTypeS3Bucket:
		return p.listBuckets(ctx)
	case domain.ResourceTypeDBInstance:
		return p.listDBInstances(ctx)
	case domain.ResourceTypeIAMRole:
		return p.listRoles(ctx)
	case domain.ResourceTypeIAMUser:
		return p.listUsers(ctx)
	default:
		return nil, fmt.Errorf("unsupported resource type %q", resourceType)
	}
}
