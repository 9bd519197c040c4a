package observer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Fetch(ctx context.Context, ref domain.ResourceRef) (domain.ResourceSnapshot, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(domain.ResourceSnapshot), args.Error(1)
}

func (m *mockProvider) Apply(ctx context.Context, ref domain.ResourceRef, target domain.TargetConfig) error {
	args := m.Called(ctx, ref, target)
	return args.Error(0)
}

func (m *mockProvider) List(ctx context.Context, resourceType string) ([]domain.ResourceRef, error) {
	args := m.Called(ctx, resourceType)
	return args.Get(0).([]domain.ResourceRef), args.Error(1)
}

func testSettings() Settings {
	return Settings{Attempts: 3, BaseDelay: time.Millisecond}
}

func TestObserver_Observe(t *testing.T) {
	ctx := context.Background()
	ref := domain.ResourceRef{Type: domain.ResourceTypeSecurityGroup, ID: "sg-1"}

	t.Run("returns snapshot on first success", func(t *testing.T) {
		provider := new(mockProvider)
		snap := domain.ResourceSnapshot{Ref: ref, Attributes: map[string]any{"groupName": "web"}}
		provider.On("Fetch", mock.Anything, ref).Return(snap, nil).Once()

		got, err := New(provider, testSettings()).Observe(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "web", got.Attributes["groupName"])
		provider.AssertExpectations(t)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		provider := new(mockProvider)
		snap := domain.ResourceSnapshot{Ref: ref}
		provider.On("Fetch", mock.Anything, ref).
			Return(domain.ResourceSnapshot{}, fmt.Errorf("throttled")).Twice()
		provider.On("Fetch", mock.Anything, ref).Return(snap, nil).Once()

		got, err := New(provider, testSettings()).Observe(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, ref, got.Ref)
		provider.AssertExpectations(t)
	})

	t.Run("unreachable after exhausting attempts", func(t *testing.T) {
		provider := new(mockProvider)
		provider.On("Fetch", mock.Anything, ref).
			Return(domain.ResourceSnapshot{}, fmt.Errorf("connection reset")).Times(3)

		_, err := New(provider, testSettings()).Observe(ctx, ref)
		require.Error(t, err)

		var obsErr *domain.ObservationError
		require.ErrorAs(t, err, &obsErr)
		assert.Equal(t, domain.ObservationUnreachable, obsErr.Kind)
		assert.False(t, obsErr.IsNotFound())
		provider.AssertExpectations(t)
	})

	t.Run("not found is terminal and never retried", func(t *testing.T) {
		provider := new(mockProvider)
		provider.On("Fetch", mock.Anything, ref).
			Return(domain.ResourceSnapshot{}, fmt.Errorf("fetch %s: %w", ref, providers.ErrNotFound)).Once()

		_, err := New(provider, testSettings()).Observe(ctx, ref)
		require.Error(t, err)

		var obsErr *domain.ObservationError
		require.ErrorAs(t, err, &obsErr)
		assert.True(t, obsErr.IsNotFound())
		assert.True(t, errors.Is(err, providers.ErrNotFound))
		provider.AssertExpectations(t)
	})

	t.Run("zero settings fall back to defaults", func(t *testing.T) {
		provider := new(mockProvider)
		provider.On("Fetch", mock.Anything, ref).Return(domain.ResourceSnapshot{Ref: ref}, nil).Once()

		_, err := New(provider, Settings{}).Observe(ctx, ref)
		assert.NoError(t, err)
	})
}
