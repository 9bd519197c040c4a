package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
)

func (p *Provider) fetchDBInstance(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	resp, err := p.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(ref.ID),
	})
	if err != nil {
		return domain.ResourceSnapshot{}, classify(ref, "describe db instance", err)
	}
	if len(resp.DBInstances) == 0 {
		return domain.ResourceSnapshot{}, fmt.Errorf("describe db instance %s: %w", ref, providers.ErrNotFound)
	}

	instance := resp.DBInstances[0]
	return domain.ResourceSnapshot{
		Ref: ref,
		Attributes: map[string]any{
			"engine":             awssdk.ToString(instance.Engine),
			"publiclyAccessible": awssdk.ToBool(instance.PubliclyAccessible),
		},
		CapturedAt: time.Now(),
	}, nil
}

func (p *Provider) applyDBInstance(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	public, ok := target["publiclyAccessible"].(bool)
	if !ok {
		return fmt.Errorf("apply %s: target is missing publiclyAccessible", ref)
	}

	_, err := p.rds.ModifyDBInstance(ctx, &rds.ModifyDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(ref.ID),
		PubliclyAccessible:   awssdk.Bool(public),
		ApplyImmediately:     awssdk.Bool(true),
	})
	if err != nil {
		return classify(ref, "modify db instance", err)
	}
	return nil
}

func (p *Provider) listDBInstances(ctx context.Context) ([]domain.ResourceRef, error) {
	var refs []domain.ResourceRef
	paginator := rds.NewDescribeDBInstancesPaginator(p.rds, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list db instances: %w", err)
		}
		for _, instance := range page.DBInstances {
			refs = append(refs, domain.ResourceRef{
				Type:   domain.ResourceTypeDBInstance,
				ID:     awssdk.ToString(instance.DBInstanceIdentifier),
				Region: p.region,
			})
		}
	}
	return refs, nil
}
