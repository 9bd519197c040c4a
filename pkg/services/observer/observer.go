package observer

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/rs/zerolog"
)

// Observer normalizes provider state into immutable snapshots. Transient
// provider failures are retried with exponential backoff; a deleted
// resource is a distinct terminal case, never retried.
type Observer interface {
	Observe(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error)
}

type Settings struct {
	// Attempts bounds how many times a transient fetch failure is retried.
	Attempts uint
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
	}
}

type observer struct {
	provider providers.Provider
	settings Settings
}

func New(provider providers.Provider, settings Settings) Observer {
	if settings.Attempts == 0 {
		settings.Attempts = DefaultSettings().Attempts
	}
	if settings.BaseDelay == 0 {
		settings.BaseDelay = DefaultSettings().BaseDelay
	}
	return &observer{provider: provider, settings: settings}
}

func (o *observer) Observe(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	var snap domain.ResourceSnapshot

	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(o.settings.Attempts),
		retry.Delay(o.settings.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, providers.ErrNotFound)
		}),
	).Do(func() error {
		fetched, err := o.provider.Fetch(ctx, ref)
		if err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("resource", ref.Key()).
				Msg("fetch failed")
			return err
		}
		snap = fetched
		return nil
	})

	if err != nil {
		kind := domain.ObservationUnreachable
		if errors.Is(err, providers.ErrNotFound) {
			kind = domain.ObservationNotFound
		}
		return domain.ResourceSnapshot{}, &domain.ObservationError{Ref: ref, Kind: kind, Err: err}
	}
	return snap, nil
}
