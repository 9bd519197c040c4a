package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/de-tools/cloud-warden/pkg/services/audit"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the per-resource pipeline state. Work for one resource
// identity is serialized through IDLE -> EVALUATING -> (REMEDIATING) ->
// IDLE; distinct resources run concurrently.
type State string

const (
	StateIdle        State = "IDLE"
	StateEvaluating  State = "EVALUATING"
	StateRemediating State = "REMEDIATING"
)

// Evaluator computes the ordered verdict list for a snapshot.
type Evaluator interface {
	Evaluate(ctx context.Context, snapshot domain.ResourceSnapshot) []domain.Verdict
}

// Dispatcher executes the remediation bound to a non-compliant verdict.
type Dispatcher interface {
	Remediate(ctx context.Context, verdict domain.Verdict) (domain.RemediationOutcome, error)
}

type Dependencies struct {
	Observer   observer.Observer
	Evaluator  Evaluator
	Dispatcher Dispatcher
	Registry   *rules.Registry
	Sink       audit.Sink
	Provider   providers.Provider
	Logger     zerolog.Logger
}

// Router owns one logical pipeline per resource identity. A trigger
// arriving while the pipeline is busy collapses into a single pending
// trigger replayed once the pipeline returns to IDLE, so duplicate bursts
// cost one re-evaluation, never parallel work.
type Router struct {
	deps Dependencies

	mu        sync.Mutex
	pipelines map[string]*pipeline
	baseCtx   context.Context
	started   bool
	closed    bool
	wg        sync.WaitGroup
}

type pipeline struct {
	ref     domain.ResourceRef
	state   State
	pending *domain.Trigger
	active  bool
}

func NewRouter(deps Dependencies) *Router {
	return &Router{
		deps:      deps,
		pipelines: make(map[string]*pipeline),
	}
}

// Start binds the router to its base context. Pipelines spawned by
// Submit inherit this context rather than the submitter's, so an HTTP
// request ending does not cancel in-flight compliance work.
func (r *Router) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseCtx = r.deps.Logger.WithContext(ctx)
	r.started = true
}

// Submit accepts a trigger. Periodic sweeps fan out into one trigger per
// listed resource; configuration-change triggers feed the resource's
// pipeline directly.
func (r *Router) Submit(ctx context.Context, trigger domain.Trigger) error {
	if trigger.ReceivedAt.IsZero() {
		trigger.ReceivedAt = time.Now()
	}
	triggersTotal.WithLabelValues(string(trigger.Kind)).Inc()

	switch trigger.Kind {
	case domain.TriggerPeriodicSweep:
		return r.sweep(ctx, trigger)
	case domain.TriggerConfigurationChanged:
		if trigger.Resource.Type == "" || trigger.Resource.ID == "" {
			return fmt.Errorf("configuration change trigger without a resource ref")
		}
		return r.submitResource(trigger)
	default:
		return fmt.Errorf("unknown trigger kind %q", trigger.Kind)
	}
}

func (r *Router) sweep(ctx context.Context, trigger domain.Trigger) error {
	types := []string{trigger.TypeFilter}
	if trigger.TypeFilter == "" {
		types = r.deps.Registry.ResourceTypes()
	}

	var errs []error
	for _, resourceType := range types {
		refs, err := r.deps.Provider.List(ctx, resourceType)
		if err != nil {
			r.deps.Logger.Error().
				Err(err).
				Str("resource_type", resourceType).
				Msg("sweep listing failed")
			errs = append(errs, err)
			continue
		}
		for _, ref := range refs {
			if err := r.submitResource(domain.Trigger{
				Kind:       trigger.Kind,
				Resource:   ref,
				ReceivedAt: trigger.ReceivedAt,
			}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Router) submitResource(trigger domain.Trigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("router not started")
	}
	if r.closed {
		return fmt.Errorf("router is shutting down")
	}

	key := trigger.Resource.Key()
	p, ok := r.pipelines[key]
	if !ok {
		p = &pipeline{ref: trigger.Resource, state: StateIdle}
		r.pipelines[key] = p
	}

	if p.active {
		// Collapse: one pending trigger is enough to guarantee
		// eventual re-evaluation.
		p.pending = &trigger
		coalescedTriggersTotal.Inc()
		return nil
	}

	p.active = true
	r.wg.Add(1)
	go r.run(p, trigger)
	return nil
}

func (r *Router) run(p *pipeline, trigger domain.Trigger) {
	defer r.wg.Done()

	for {
		drop := r.process(r.baseCtx, p, trigger)

		r.mu.Lock()
		if drop {
			delete(r.pipelines, p.ref.Key())
			r.mu.Unlock()
			return
		}
		if p.pending != nil && !r.closed {
			trigger = *p.pending
			p.pending = nil
			r.mu.Unlock()
			continue
		}
		p.active = false
		p.state = StateIdle
		r.mu.Unlock()
		return
	}
}

// process runs one full pass for a resource: observe, evaluate, dispatch
// bound remediations, and record the audit trail. The returned flag
// requests dropping the resource from active monitoring (deleted
// upstream).
func (r *Router) process(ctx context.Context, p *pipeline, trigger domain.Trigger) bool {
	r.setState(p, StateEvaluating)
	logger := zerolog.Ctx(ctx).With().Str("resource", p.ref.Key()).Logger()

	snap, err := r.deps.Observer.Observe(ctx, p.ref)
	if err != nil {
		var obsErr *domain.ObservationError
		notFound := errors.As(err, &obsErr) && obsErr.IsNotFound()

		r.record(ctx, p.ref, domain.Verdict{
			Compliance:  domain.NotApplicable,
			Reason:      fmt.Sprintf("observation failed: %v", err),
			EvaluatedAt: time.Now(),
		}, nil)

		if notFound {
			logger.Info().Msg("resource deleted, dropping from monitoring")
			return true
		}
		logger.Error().Err(err).Msg("observation failed after retries")
		return false
	}

	verdicts := r.deps.Evaluator.Evaluate(ctx, snap)
	for _, verdict := range verdicts {
		evaluationsTotal.WithLabelValues(string(verdict.Compliance)).Inc()

		var remediation *domain.RemediationOutcome
		if verdict.Compliance == domain.NonCompliant && r.hasAction(verdict.Rule) {
			r.setState(p, StateRemediating)
			result, err := r.deps.Dispatcher.Remediate(ctx, verdict)
			if err != nil {
				logger.Error().Err(err).Str("rule", verdict.Rule).Msg("remediation escalated")
			}
			remediationsTotal.WithLabelValues(string(result.Status)).Inc()
			remediation = &result
			r.setState(p, StateEvaluating)
		}

		r.record(ctx, p.ref, verdict, remediation)
	}
	return false
}

func (r *Router) hasAction(ruleName string) bool {
	rule, ok := r.deps.Registry.Get(ruleName)
	return ok && rule.Action != nil
}

func (r *Router) record(
	ctx context.Context,
	ref domain.ResourceRef,
	verdict domain.Verdict,
	remediation *domain.RemediationOutcome,
) {
	r.deps.Sink.Record(ctx, domain.AuditRecord{
		ID:          uuid.NewString(),
		Resource:    ref,
		Verdict:     verdict,
		Remediation: remediation,
		CreatedAt:   time.Now(),
	})
}

func (r *Router) setState(p *pipeline, state State) {
	r.mu.Lock()
	p.state = state
	r.mu.Unlock()
}

// States snapshots the state machine of every tracked resource.
func (r *Router) States() map[string]State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]State, len(r.pipelines))
	for key, p := range r.pipelines {
		out[key] = p.state
	}
	return out
}

// Drain blocks until every active pipeline reaches IDLE. New triggers
// submitted while draining are still accepted unless Close was called.
func (r *Router) Drain() {
	r.wg.Wait()
}

// Close rejects further triggers and waits for active pipelines to
// finish their current pass. In-flight remediations are never
// interrupted mid-action.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}
