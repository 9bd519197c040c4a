package aws

import (
	"context"
	"errors"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

func (p *Provider) fetchBucket(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	resp, err := p.s3.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
		Bucket: awssdk.String(ref.ID),
	})

	attrs := map[string]any{
		"blockPublicAcls":       false,
		"ignorePublicAcls":      false,
		"blockPublicPolicy":     false,
		"restrictPublicBuckets": false,
	}

	switch {
	case err == nil:
		cfg := resp.PublicAccessBlockConfiguration
		attrs["blockPublicAcls"] = awssdk.ToBool(cfg.BlockPublicAcls)
		attrs["ignorePublicAcls"] = awssdk.ToBool(cfg.IgnorePublicAcls)
		attrs["blockPublicPolicy"] = awssdk.ToBool(cfg.BlockPublicPolicy)
		attrs["restrictPublicBuckets"] = awssdk.ToBool(cfg.RestrictPublicBuckets)
	case isMissingAccessBlock(err):
		// A bucket without a public-access-block configuration is wide
		// open; report all four flags off instead of failing.
	default:
		return domain.ResourceSnapshot{}, classify(ref, "get public access block", err)
	}

	return domain.ResourceSnapshot{
		Ref:        ref,
		Attributes: attrs,
		CapturedAt: time.Now(),
	}, nil
}

func isMissingAccessBlock(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchPublicAccessBlockConfiguration"
}

func (p *Provider) applyBucket(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	block := func(key string) *bool {
		v, ok := target[key].(bool)
		if !ok {
			return awssdk.Bool(false)
		}
		return awssdk.Bool(v)
	}

	_, err := p.s3.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: awssdk.String(ref.ID),
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       block("blockPublicAcls"),
			IgnorePublicAcls:      block("ignorePublicAcls"),
			BlockPublicPolicy:     block("blockPublicPolicy"),
			RestrictPublicBuckets: block("restrictPublicBuckets"),
		},
	})
	if err != nil {
		return classify(ref, "put public access block", err)
	}
	return nil
}

func (p *Provider) listBuckets(ctx context.Context) ([]domain.ResourceRef, error) {
	resp, err := p.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}

	refs := make([]domain.ResourceRef, 0, len(resp.Buckets))
	for _, bucket := range resp.Buckets {
		refs = append(refs, domain.ResourceRef{
			Type:   domain.ResourceTypeS3Bucket,
			ID:     awssdk.ToString(bucket.Name),
			Region: p.region,
		})
	}
	return refs, nil
}
