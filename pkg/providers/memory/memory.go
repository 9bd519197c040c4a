package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
)

// Provider is an in-memory resource store. It backs tests and the demo
// configuration; Apply mutates attributes directly, which makes
// remediation convergence observable without a cloud account.
type Provider struct {
	mu        sync.RWMutex
	resources map[string]domain.ResourceSnapshot
}

func NewProvider() *Provider {
	return &Provider{
		resources: make(map[string]domain.ResourceSnapshot),
	}
}

// Seed registers or replaces a resource.
func (p *Provider) Seed(ref domain.ResourceRef, attrs map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[ref.Key()] = domain.ResourceSnapshot{
		Ref:        ref,
		Attributes: attrs,
		CapturedAt: time.Now(),
	}
}

// Remove deletes a resource; subsequent Fetch calls return ErrNotFound.
func (p *Provider) Remove(ref domain.ResourceRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.resources, ref.Key())
}

func (p *Provider) Fetch(_ context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap, ok := p.resources[ref.Key()]
	if !ok {
		return domain.ResourceSnapshot{}, fmt.Errorf("fetch %s: %w", ref, providers.ErrNotFound)
	}

	attrs := make(map[string]any, len(snap.Attributes))
	for k, v := range snap.Attributes {
		attrs[k] = v
	}
	return domain.ResourceSnapshot{
		Ref:        snap.Ref,
		Attributes: attrs,
		CapturedAt: time.Now(),
	}, nil
}

func (p *Provider) Apply(_ context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap, ok := p.resources[ref.Key()]
	if !ok {
		return fmt.Errorf("apply %s: %w", ref, providers.ErrNotFound)
	}

	for k, v := range target {
		snap.Attributes[k] = v
	}
	p.resources[ref.Key()] = snap
	return nil
}

func (p *Provider) List(_ context.Context, resourceType string) ([]domain.ResourceRef, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var refs []domain.ResourceRef
	for _, snap := range p.resources {
		if resourceType == "" || snap.Ref.Type == resourceType {
			refs = append(refs, snap.Ref)
		}
	}
	return refs, nil
}
