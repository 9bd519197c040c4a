package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// fetchIAMEntity snapshots the managed policies attached to a role or
// user. For users the group-attached policies are folded in additively,
// matching how AWS evaluates effective permissions.
func (p *Provider) fetchIAMEntity(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	var policies []string
	var err error

	switch ref.Type {
	case domain.ResourceTypeIAMRole:
		policies, err = p.rolePolicies(ctx, ref.ID)
	case domain.ResourceTypeIAMUser:
		policies, err = p.userPolicies(ctx, ref.ID)
	default:
		return domain.ResourceSnapshot{}, fmt.Errorf("unsupported IAM resource type %q", ref.Type)
	}
	if err != nil {
		return domain.ResourceSnapshot{}, classify(ref, "list attached policies", err)
	}

	return domain.ResourceSnapshot{
		Ref: ref,
		Attributes: map[string]any{
			"attachedPolicies": policies,
		},
		CapturedAt: time.Now(),
	}, nil
}

func (p *Provider) rolePolicies(ctx context.Context, roleName string) ([]string, error) {
	var policies []string
	paginator := iam.NewListAttachedRolePoliciesPaginator(p.iam, &iam.ListAttachedRolePoliciesInput{
		RoleName: awssdk.String(roleName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, policy := range page.AttachedPolicies {
			policies = append(policies, awssdk.ToString(policy.PolicyArn))
		}
	}
	return policies, nil
}

func (p *Provider) userPolicies(ctx context.Context, userName string) ([]string, error) {
	var policies []string
	attached := iam.NewListAttachedUserPoliciesPaginator(p.iam, &iam.ListAttachedUserPoliciesInput{
		UserName: awssdk.String(userName),
	})
	for attached.HasMorePages() {
		page, err := attached.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, policy := range page.AttachedPolicies {
			policies = append(policies, awssdk.ToString(policy.PolicyArn))
		}
	}

	groups, err := p.iam.ListGroupsForUser(ctx, &iam.ListGroupsForUserInput{
		UserName: awssdk.String(userName),
	})
	if err != nil {
		return nil, err
	}
	for _, group := range groups.Groups {
		groupPolicies, err := p.iam.ListAttachedGroupPolicies(ctx, &iam.ListAttachedGroupPoliciesInput{
			GroupName: group.GroupName,
		})
		if err != nil {
			return nil, err
		}
		for _, policy := range groupPolicies.AttachedPolicies {
			policies = append(policies, awssdk.ToString(policy.PolicyArn))
		}
	}
	return policies, nil
}

// applyIAMEntity attaches every required policy the entity is missing.
func (p *Provider) applyIAMEntity(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	required, ok := target["attachedPolicies"].([]string)
	if !ok {
		return fmt.Errorf("apply %s: target is missing attachedPolicies", ref)
	}

	snap, err := p.fetchIAMEntity(ctx, ref)
	if err != nil {
		return err
	}
	current, _ := snap.StringsAttr("attachedPolicies")

	have := make(map[string]struct{}, len(current))
	for _, arn := range current {
		have[arn] = struct{}{}
	}

	for _, arn := range required {
		if _, ok := have[arn]; ok {
			continue
		}
		switch ref.Type {
		case domain.ResourceTypeIAMRole:
			_, err = p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
				RoleName:  awssdk.String(ref.ID),
				PolicyArn: awssdk.String(arn),
			})
		case domain.ResourceTypeIAMUser:
			_, err = p.iam.AttachUserPolicy(ctx, &iam.AttachUserPolicyInput{
				UserName:  awssdk.String(ref.ID),
				PolicyArn: awssdk.String(arn),
			})
		}
		if err != nil {
			return classify(ref, "attach policy", err)
		}
	}
	return nil
}

func (p *Provider) listRoles(ctx context.Context) ([]domain.ResourceRef, error) {
	var refs []domain.ResourceRef
	paginator := iam.NewListRolesPaginator(p.iam, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		for _, role := range page.Roles {
			refs = append(refs, domain.ResourceRef{
				Type: domain.ResourceTypeIAMRole,
				ID:   awssdk.ToString(role.RoleName),
			})
		}
	}
	return refs, nil
}

func (p *Provider) listUsers(ctx context.Context) ([]domain.ResourceRef, error) {
	var refs []domain.ResourceRef
	paginator := iam.NewListUsersPaginator(p.iam, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, user := range page.Users {
			refs = append(refs, domain.ResourceRef{
				Type: domain.ResourceTypeIAMUser,
				ID:   awssdk.ToString(user.UserName),
			})
		}
	}
	return refs, nil
}
