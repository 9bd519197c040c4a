package remediation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/de-tools/cloud-warden/pkg/services/observer"
	"github.com/de-tools/cloud-warden/pkg/services/rules"
	"github.com/rs/zerolog"
)

type Settings struct {
	// Attempts bounds how many times a failing apply is retried before
	// the dispatch turns into a terminal escalation.
	Attempts uint
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Attempts:  3,
		BaseDelay: time.Second,
	}
}

// Dispatcher executes bound remediation actions for non-compliant
// verdicts. It re-observes before acting so an already-fixed resource
// short-circuits to an explicit skip, and it guarantees at most one
// in-flight attempt per resource identity.
type Dispatcher struct {
	provider providers.Provider
	observer observer.Observer
	registry *rules.Registry
	settings Settings

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDispatcher(
	provider providers.Provider,
	obs observer.Observer,
	registry *rules.Registry,
	settings Settings,
) *Dispatcher {
	if settings.Attempts == 0 {
		settings.Attempts = DefaultSettings().Attempts
	}
	if settings.BaseDelay == 0 {
		settings.BaseDelay = DefaultSettings().BaseDelay
	}
	return &Dispatcher{
		provider: provider,
		observer: obs,
		registry: registry,
		settings: settings,
		inflight: make(map[string]struct{}),
	}
}

// Remediate runs the action bound to the verdict's rule. The returned
// outcome is always terminal: succeeded, failed after bounded retries,
// or an explicit skip. A non-nil error accompanies failed outcomes with
// the underlying cause for logging.
func (d *Dispatcher) Remediate(ctx context.Context, verdict domain.Verdict) (domain.RemediationOutcome, error) {
	rule, ok := d.registry.Get(verdict.Rule)
	if !ok || rule.Action == nil {
		return outcome("", domain.RemediationSkipped, 0, "no remediation action bound"), nil
	}
	action := *rule.Action
	ref := verdict.Snapshot.Ref

	if !d.acquire(ref) {
		return outcome(action.Name, domain.RemediationSkipped, 0, "remediation already in flight"), nil
	}
	defer d.release(ref)

	logger := zerolog.Ctx(ctx).With().
		Str("resource", ref.Key()).
		Str("rule", rule.Name).
		Str("action", action.Name).
		Logger()

	// Re-observe first: the resource may have been fixed or deleted
	// between evaluation and dispatch.
	snap, err := d.observer.Observe(ctx, ref)
	if err != nil {
		var obsErr *domain.ObservationError
		if errors.As(err, &obsErr) && obsErr.IsNotFound() {
			return outcome(action.Name, domain.RemediationSkipped, 0, "resource deleted before remediation"), nil
		}
		return outcome(action.Name, domain.RemediationFailed, 0, "could not observe current state"),
			&domain.RemediationError{Action: action.Name, Ref: ref, Terminal: true, Err: err}
	}

	if compliance, _ := evaluateSafely(rule, snap); compliance != domain.NonCompliant {
		logger.Info().Msg("resource already compliant, skipping remediation")
		return outcome(action.Name, domain.RemediationSkipped, 0, "resource already compliant"), nil
	}

	target := action.Target(snap)
	attempts := 0

	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(d.settings.Attempts),
		retry.Delay(d.settings.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, providers.ErrNotFound)
		}),
	).Do(func() error {
		attempts++
		if err := d.provider.Apply(ctx, ref, target); err != nil {
			logger.Warn().Err(err).Int("attempt", attempts).Msg("apply failed")
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return outcome(action.Name, domain.RemediationSkipped, attempts, "resource deleted during remediation"), nil
		}
		return outcome(action.Name, domain.RemediationFailed, attempts, fmt.Sprintf("apply failed after %d attempts", attempts)),
			&domain.RemediationError{Action: action.Name, Ref: ref, Terminal: true, Err: err}
	}

	// Re-verify convergence so a succeeded outcome reflects observed
	// state, not just an accepted API call.
	verified, err := d.observer.Observe(ctx, ref)
	if err != nil {
		return outcome(action.Name, domain.RemediationFailed, attempts, "post-remediation verification failed"),
			&domain.RemediationError{Action: action.Name, Ref: ref, Terminal: true, Err: err}
	}
	if compliance, reason := evaluateSafely(rule, verified); compliance == domain.NonCompliant {
		return outcome(action.Name, domain.RemediationFailed, attempts, fmt.Sprintf("resource did not converge: %s", reason)),
			&domain.RemediationError{
				Action:   action.Name,
				Ref:      ref,
				Terminal: true,
				Err:      fmt.Errorf("still non-compliant after apply: %s", reason),
			}
	}

	logger.Info().Int("attempts", attempts).Msg("remediation succeeded")
	return outcome(action.Name, domain.RemediationSucceeded, attempts, "resource converged to target state"), nil
}

func (d *Dispatcher) acquire(ref domain.ResourceRef) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[ref.Key()]; busy {
		return false
	}
	d.inflight[ref.Key()] = struct{}{}
	return true
}

func (d *Dispatcher) release(ref domain.ResourceRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, ref.Key())
}

func evaluateSafely(rule domain.Rule, snap domain.ResourceSnapshot) (compliance domain.Compliance, reason string) {
	defer func() {
		if r := recover(); r != nil {
			compliance = domain.NotApplicable
			reason = "rule evaluation failed on malformed input"
		}
	}()
	return rule.Predicate(snap)
}

func outcome(action string, status domain.RemediationStatus, attempts int, reason string) domain.RemediationOutcome {
	return domain.RemediationOutcome{
		Action:      action,
		Status:      status,
		Attempts:    attempts,
		Reason:      reason,
		CompletedAt: time.Now(),
	}
}
