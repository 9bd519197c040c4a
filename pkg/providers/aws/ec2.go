package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
)

func (p *Provider) fetchSecurityGroup(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	resp, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{ref.ID},
	})
	if err != nil {
		return domain.ResourceSnapshot{}, classify(ref, "describe security group", err)
	}
	if len(resp.SecurityGroups) == 0 {
		return domain.ResourceSnapshot{}, fmt.Errorf("describe security group %s: %w", ref, providers.ErrNotFound)
	}

	group := resp.SecurityGroups[0]
	var ingress []domain.IngressRule
	for _, perm := range group.IpPermissions {
		for _, ipRange := range perm.IpRanges {
			ingress = append(ingress, domain.IngressRule{
				Protocol: awssdk.ToString(perm.IpProtocol),
				FromPort: awssdk.ToInt32(perm.FromPort),
				ToPort:   awssdk.ToInt32(perm.ToPort),
				CIDR:     awssdk.ToString(ipRange.CidrIp),
			})
		}
	}

	return domain.ResourceSnapshot{
		Ref: ref,
		Attributes: map[string]any{
			"groupName": awssdk.ToString(group.GroupName),
			"ingress":   ingress,
		},
		CapturedAt: time.Now(),
	}, nil
}

// applySecurityGroup converges ingress by revoking every rule the target
// no longer contains. Remediation only removes access; it never grants.
func (p *Provider) applySecurityGroup(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	desired, ok := target["ingress"].([]domain.IngressRule)
	if !ok {
		return fmt.Errorf("apply %s: target is missing ingress rules", ref)
	}

	snap, err := p.fetchSecurityGroup(ctx, ref)
	if err != nil {
		return err
	}
	current, _ := snap.IngressAttr("ingress")

	keep := make(map[string]struct{}, len(desired))
	for _, rule := range desired {
		keep[rule.String()] = struct{}{}
	}

	var revoke []types.IpPermission
	for _, rule := range current {
		if _, ok := keep[rule.String()]; ok {
			continue
		}
		revoke = append(revoke, types.IpPermission{
			IpProtocol: awssdk.String(rule.Protocol),
			FromPort:   awssdk.Int32(rule.FromPort),
			ToPort:     awssdk.Int32(rule.ToPort),
			IpRanges:   []types.IpRange{{CidrIp: awssdk.String(rule.CIDR)}},
		})
	}

	if len(revoke) == 0 {
		return nil
	}

	_, err = p.ec2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
		GroupId:       awssdk.String(ref.ID),
		IpPermissions: revoke,
	})
	if err != nil {
		return classify(ref, "revoke ingress", err)
	}
	return nil
}

func (p *Provider) listSecurityGroups(ctx context.Context) ([]domain.ResourceRef, error) {
	var refs []domain.ResourceRef
	paginator := ec2.NewDescribeSecurityGroupsPaginator(p.ec2, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list security groups: %w", err)
		}
		for _, group := range page.SecurityGroups {
			refs = append(refs, domain.ResourceRef{
				Type:    domain.ResourceTypeSecurityGroup,
				ID:      awssdk.ToString(group.GroupId),
				Region:  p.region,
				Account: awssdk.ToString(group.OwnerId),
			})
		}
	}
	return refs, nil
}
