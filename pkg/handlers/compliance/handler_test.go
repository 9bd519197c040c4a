package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/services/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTriggerService struct {
	mock.Mock
}

func (m *mockTriggerService) Submit(ctx context.Context, trigger domain.Trigger) error {
	args := m.Called(ctx, trigger)
	return args.Error(0)
}

type mockStateReporter struct {
	mock.Mock
}

func (m *mockStateReporter) States() map[string]scheduler.State {
	args := m.Called()
	return args.Get(0).(map[string]scheduler.State)
}

type mockAuditReader struct {
	mock.Mock
}

func (m *mockAuditReader) GetRecent(ctx context.Context, limit int) ([]store.AuditRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]store.AuditRecord), args.Error(1)
}

func (m *mockAuditReader) GetByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]store.AuditRecord, error) {
	args := m.Called(ctx, resourceType, resourceID, limit)
	return args.Get(0).([]store.AuditRecord), args.Error(1)
}

type mockRuleLister struct {
	mock.Mock
}

func (m *mockRuleLister) Rules() []domain.Rule {
	args := m.Called()
	return args.Get(0).([]domain.Rule)
}

type handlerFixture struct {
	triggers *mockTriggerService
	states   *mockStateReporter
	audit    *mockAuditReader
	rules    *mockRuleLister
	handler  *Handler
}

func setupHandler() *handlerFixture {
	f := &handlerFixture{
		triggers: new(mockTriggerService),
		states:   new(mockStateReporter),
		audit:    new(mockAuditReader),
		rules:    new(mockRuleLister),
	}
	f.handler = NewHandler(f.triggers, f.states, f.audit, f.rules)
	return f
}

func TestHandler_SubmitTrigger(t *testing.T) {
	t.Run("accepts a valid trigger", func(t *testing.T) {
		f := setupHandler()
		f.triggers.On("Submit", mock.Anything, mock.MatchedBy(func(trigger domain.Trigger) bool {
			return trigger.Kind == domain.TriggerConfigurationChanged &&
				trigger.Resource.ID == "sg-1"
		})).Return(nil)

		body := `{"kind":"configuration_changed","resource":{"type":"AWS::EC2::SecurityGroup","id":"sg-1"}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", strings.NewReader(body))
		rec := httptest.NewRecorder()

		f.handler.SubmitTrigger(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		f.triggers.AssertExpectations(t)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		f := setupHandler()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		f.handler.SubmitTrigger(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects triggers the router refuses", func(t *testing.T) {
		f := setupHandler()
		f.triggers.On("Submit", mock.Anything, mock.Anything).
			Return(fmt.Errorf("unknown trigger kind \"mystery\""))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/triggers", strings.NewReader(`{"kind":"mystery"}`))
		rec := httptest.NewRecorder()

		f.handler.SubmitTrigger(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandler_GetStatus(t *testing.T) {
	f := setupHandler()
	f.states.On("States").Return(map[string]scheduler.State{
		"AWS::EC2::SecurityGroup/sg-2": scheduler.StateRemediating,
		"AWS::EC2::SecurityGroup/sg-1": scheduler.StateIdle,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	f.handler.GetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report api.StatusReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Len(t, report.Resources, 2)

	// Sorted by resource key for stable output.
	assert.Equal(t, "AWS::EC2::SecurityGroup/sg-1", report.Resources[0].Resource)
	assert.Equal(t, "IDLE", report.Resources[0].State)
	assert.Equal(t, "REMEDIATING", report.Resources[1].State)
}

func TestHandler_ListAuditRecords(t *testing.T) {
	t.Run("returns mapped records", func(t *testing.T) {
		f := setupHandler()
		f.audit.On("GetRecent", mock.Anything, 5).Return([]store.AuditRecord{
			{
				ID:                "rec-1",
				ResourceType:      "AWS::EC2::SecurityGroup",
				ResourceID:        "sg-1",
				Rule:              "no-open-ssh",
				Compliance:        "NON_COMPLIANT",
				Reason:            "port 22 open to 0.0.0.0/0",
				RemediationAction: "revoke-open-ssh",
				RemediationStatus: "succeeded",
				CreatedAt:         time.Now(),
			},
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=5", nil)
		rec := httptest.NewRecorder()
		f.handler.ListAuditRecords(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var records []api.AuditRecord
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
		require.Len(t, records, 1)
		assert.Equal(t, "rec-1", records[0].ID)
		assert.Equal(t, api.ComplianceNonCompliant, records[0].Verdict.Compliance)
		require.NotNil(t, records[0].Remediation)
		assert.Equal(t, "succeeded", records[0].Remediation.Status)
	})

	t.Run("store failure maps to 503", func(t *testing.T) {
		f := setupHandler()
		f.audit.On("GetRecent", mock.Anything, 0).
			Return([]store.AuditRecord(nil), fmt.Errorf("db closed"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
		rec := httptest.NewRecorder()
		f.handler.ListAuditRecords(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("invalid limit falls back to default", func(t *testing.T) {
		f := setupHandler()
		f.audit.On("GetRecent", mock.Anything, 0).Return([]store.AuditRecord{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?limit=banana", nil)
		rec := httptest.NewRecorder()
		f.handler.ListAuditRecords(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		f.audit.AssertExpectations(t)
	})
}

func TestHandler_ListResourceAuditRecords(t *testing.T) {
	f := setupHandler()
	f.audit.On("GetByResource", mock.Anything, "AWS::S3::Bucket", "logs", 0).
		Return([]store.AuditRecord{{ID: "rec-1", ResourceType: "AWS::S3::Bucket", ResourceID: "logs"}}, nil)

	router := chi.NewRouter()
	router.Get("/api/v1/audit/{type}/{id}", f.handler.ListResourceAuditRecords)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/AWS::S3::Bucket/logs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var records []api.AuditRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "logs", records[0].Resource.ID)
}

func TestHandler_ListRules(t *testing.T) {
	f := setupHandler()
	f.rules.On("Rules").Return([]domain.Rule{
		{
			Name:          "no-open-ssh",
			Description:   "Security groups must not expose port 22 to 0.0.0.0/0",
			ResourceTypes: []string{domain.ResourceTypeSecurityGroup},
			Action:        &domain.RemediationAction{Name: "revoke-open-ssh"},
		},
		{
			Name:          "report-only",
			ResourceTypes: []string{domain.ResourceTypeS3Bucket},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	rec := httptest.NewRecorder()
	f.handler.ListRules(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var rules []api.RuleInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rules))
	require.Len(t, rules, 2)
	assert.Equal(t, "revoke-open-ssh", rules[0].Action)
	assert.Empty(t, rules[1].Action)
}
