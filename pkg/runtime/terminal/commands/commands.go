package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/de-tools/cloud-warden/pkg/runtime/terminal/export"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/de-tools/cloud-warden/pkg/services/scheduler"
)

// Sentinel errors the entrypoint maps onto exit codes: non-compliance
// exits 1, every other failure exits 2.
var (
	ErrNonCompliant      = errors.New("resource is non-compliant")
	ErrRemediationFailed = errors.New("remediation failed")
)

type Dependencies struct {
	Observer   observer.Observer
	Evaluator  *rules.Evaluator
	Dispatcher scheduler.Dispatcher
	Registry   *rules.Registry
	Provider   providers.Provider
	ServerAddr string
	Reporter   *export.Reporter
}

// resolveRef finds the full resource ref for a bare resource id by
// scanning the provider listings for every rule-covered type.
func resolveRef(ctx context.Context, deps Dependencies, resourceID string) (domain.ResourceRef, error) {
	for _, resourceType := range deps.Registry.ResourceTypes() {
		refs, err := deps.Provider.List(ctx, resourceType)
		if err != nil {
			return domain.ResourceRef{}, fmt.Errorf("list %s: %w", resourceType, err)
		}
		for _, ref := range refs {
			if ref.ID == resourceID {
				return ref, nil
			}
		}
	}
	return domain.ResourceRef{}, fmt.Errorf("resource %q not found in any monitored type", resourceID)
}
