package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers/memory"
	"github.com/de-tools/cloud-warden/pkg/services/audit"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/de-tools/cloud-warden/pkg/services/rules/builtin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingDispatcher parks Remediate until released, so tests can hold a
// pipeline in REMEDIATING while more triggers arrive.
type blockingDispatcher struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDispatcher) Remediate(_ context.Context, _ domain.Verdict) (domain.RemediationOutcome, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.release != nil {
		<-d.release
	}
	return domain.RemediationOutcome{
		Action:      "revoke-open-ssh",
		Status:      domain.RemediationSucceeded,
		Attempts:    1,
		Reason:      "resource converged to target state",
		CompletedAt: time.Now(),
	}, nil
}

func (d *blockingDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type routerFixture struct {
	provider   *memory.Provider
	sink       *audit.MemorySink
	dispatcher *blockingDispatcher
	router     *Router
}

func setupRouter(t *testing.T, dispatcher *blockingDispatcher) *routerFixture {
	provider := memory.NewProvider()
	registry, err := rules.NewRegistry(builtin.NoOpenSSH())
	require.NoError(t, err)

	sink := audit.NewMemorySink()
	router := NewRouter(Dependencies{
		Observer:   observer.New(provider, observer.Settings{Attempts: 2, BaseDelay: time.Millisecond}),
		Evaluator:  rules.NewEvaluator(registry),
		Dispatcher: dispatcher,
		Registry:   registry,
		Sink:       sink,
		Provider:   provider,
		Logger:     zerolog.Nop(),
	})
	router.Start(context.Background())
	t.Cleanup(router.Close)

	return &routerFixture{
		provider:   provider,
		sink:       sink,
		dispatcher: dispatcher,
		router:     router,
	}
}

func openSSHAttrs() map[string]any {
	return map[string]any{
		"ingress": []domain.IngressRule{
			{Protocol: "tcp", FromPort: 22, ToPort: 22, CIDR: "0.0.0.0/0"},
		},
	}
}

func closedAttrs() map[string]any {
	return map[string]any{
		"ingress": []domain.IngressRule{
			{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDR: "0.0.0.0/0"},
		},
	}
}

func changeTrigger(ref domain.ResourceRef) domain.Trigger {
	return domain.Trigger{
		Kind:       domain.TriggerConfigurationChanged,
		Resource:   ref,
		ReceivedAt: time.Now(),
	}
}

func TestRouter_Submit(t *testing.T) {
	ctx := context.Background()
	ref := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-1"}

	t.Run("rejects unknown trigger kinds", func(t *testing.T) {
		f := setupRouter(t, &blockingDispatcher{})
		err := f.router.Submit(ctx, domain.Trigger{Kind: "mystery"})
		assert.Error(t, err)
	})

	t.Run("rejects configuration change without a resource", func(t *testing.T) {
		f := setupRouter(t, &blockingDispatcher{})
		err := f.router.Submit(ctx, domain.Trigger{Kind: domain.TriggerConfigurationChanged})
		assert.Error(t, err)
	})

	t.Run("rejects triggers before start", func(t *testing.T) {
		router := NewRouter(Dependencies{Logger: zerolog.Nop()})
		err := router.Submit(ctx, changeTrigger(ref))
		assert.Error(t, err)
	})

	t.Run("non-compliant resource is remediated and audited", func(t *testing.T) {
		f := setupRouter(t, &blockingDispatcher{})
		f.provider.Seed(ref, openSSHAttrs())

		require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
		f.router.Drain()

		records := f.sink.Records()
		require.Len(t, records, 1)
		assert.Equal(t, ref, records[0].Resource)
		assert.Equal(t, domain.NonCompliant, records[0].Verdict.Compliance)
		require.NotNil(t, records[0].Remediation)
		assert.Equal(t, domain.RemediationSucceeded, records[0].Remediation.Status)
		assert.NotEmpty(t, records[0].ID)
	})

	t.Run("compliant resource is audited without remediation", func(t *testing.T) {
		f := setupRouter(t, &blockingDispatcher{})
		f.provider.Seed(ref, closedAttrs())

		require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
		f.router.Drain()

		assert.Equal(t, 0, f.dispatcher.callCount())
		records := f.sink.Records()
		require.Len(t, records, 1)
		assert.Equal(t, domain.Compliant, records[0].Verdict.Compliance)
		assert.Nil(t, records[0].Remediation)

		states := f.router.States()
		assert.Equal(t, StateIdle, states[ref.Key()])
	})

	t.Run("deleted resource is dropped from monitoring", func(t *testing.T) {
		f := setupRouter(t, &blockingDispatcher{})

		require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
		f.router.Drain()

		records := f.sink.Records()
		require.Len(t, records, 1)
		assert.Equal(t, domain.NotApplicable, records[0].Verdict.Compliance)
		assert.Contains(t, records[0].Verdict.Reason, "observation failed")

		assert.Empty(t, f.router.States())
	})
}

func TestRouter_Coalescing(t *testing.T) {
	ctx := context.Background()
	ref := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-1"}

	dispatcher := &blockingDispatcher{
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	f := setupRouter(t, dispatcher)
	f.provider.Seed(ref, openSSHAttrs())

	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
	<-dispatcher.entered

	states := f.router.States()
	assert.Equal(t, StateRemediating, states[ref.Key()])

	// A burst of triggers while the pipeline is busy collapses into a
	// single pending replay.
	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))

	close(dispatcher.release)
	f.router.Drain()

	assert.Equal(t, 2, dispatcher.callCount())
	assert.Len(t, f.sink.Records(), 2)
}

func TestRouter_Sweep(t *testing.T) {
	ctx := context.Background()
	f := setupRouter(t, &blockingDispatcher{})

	sg1 := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-1"}
	sg2 := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-2"}
	bucket := domain.ResourceRef{Type: domain.ResourceTypeS3Bucket, ID: "logs"}

	f.provider.Seed(sg1, closedAttrs())
	f.provider.Seed(sg2, openSSHAttrs())
	f.provider.Seed(bucket, map[string]any{"blockPublicAcls": false})

	require.NoError(t, f.router.Submit(ctx, domain.Trigger{Kind: domain.TriggerPeriodicSweep}))
	f.router.Drain()

	// Only rule-covered resource types are swept; the bucket stays
	// untouched because no registered rule targets it.
	audited := make(map[string]domain.Compliance)
	for _, rec := range f.sink.Records() {
		audited[rec.Resource.Key()] = rec.Verdict.Compliance
	}
	assert.Equal(t, map[string]domain.Compliance{
		sg1.Key(): domain.Compliant,
		sg2.Key(): domain.NonCompliant,
	}, audited)

	states := f.router.States()
	assert.Len(t, states, 2)
}

func TestRouter_FIFOAuditOrder(t *testing.T) {
	ctx := context.Background()
	ref := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-1"}

	f := setupRouter(t, &blockingDispatcher{})
	f.provider.Seed(ref, openSSHAttrs())

	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
	f.router.Drain()

	f.provider.Seed(ref, closedAttrs())
	require.NoError(t, f.router.Submit(ctx, changeTrigger(ref)))
	f.router.Drain()

	records := f.sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, domain.NonCompliant, records[0].Verdict.Compliance)
	assert.Equal(t, domain.Compliant, records[1].Verdict.Compliance)
}
