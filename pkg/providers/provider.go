package providers

import (
	"context"
	"errors"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// ErrNotFound is returned (wrapped) by Fetch and Apply when the resource
// no longer exists. Callers treat it as terminal: the resource is dropped
// from active monitoring rather than reported non-compliant.
var ErrNotFound = errors.New("resource not found")

// Provider is the cloud-side collaborator: it reads raw resource
// configuration and converges resources towards a target state. All
// methods may block on network I/O and honour context cancellation.
type Provider interface {
	// Fetch captures the current configuration of a resource.
	Fetch(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error)
	// Apply converges the resource towards the target configuration.
	// Apply must be idempotent: applying a target the resource already
	// satisfies is a no-op.
	Apply(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error
	// List enumerates refs of the given resource type, used by periodic
	// sweeps to fan out.
	List(ctx context.Context, resourceType string) ([]domain.ResourceRef, error)
}
