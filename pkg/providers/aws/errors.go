package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
)

// API error codes the AWS services return for deleted resources.
var notFoundCodes = map[string]struct{}{
	"InvalidGroup.NotFound":   {},
	"NoSuchBucket":            {},
	"DBInstanceNotFound":      {},
	"DBInstanceNotFoundFault": {},
	"NoSuchEntity":            {},
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := notFoundCodes[apiErr.ErrorCode()]
	return ok
}

// classify maps an AWS API error onto the provider error contract:
// deleted resources surface as ErrNotFound, everything else stays as a
// wrapped transient error.
func classify(ref domain.ResourceRef, op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w", op, ref, providers.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, ref, err)
}
