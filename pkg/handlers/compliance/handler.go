package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/de-tools/cloud-warden/pkg/services/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// TriggerService accepts normalized inbound triggers.
type TriggerService interface {
	Submit(ctx context.Context, trigger domain.Trigger) error
}

// StateReporter exposes the per-resource state machines.
type StateReporter interface {
	States() map[string]scheduler.State
}

// AuditReader serves the persisted audit trail.
type AuditReader interface {
	GetRecent(ctx context.Context, limit int) ([]store.AuditRecord, error)
	GetByResource(ctx context.Context, resourceType, resourceID string, limit int) ([]store.AuditRecord, error)
}

// RuleLister reports the registered rule set.
type RuleLister interface {
	Rules() []domain.Rule
}

type Handler struct {
	triggers TriggerService
	states   StateReporter
	audit    AuditReader
	rules    RuleLister
}

func NewHandler(triggers TriggerService, states StateReporter, audit AuditReader, rules RuleLister) *Handler {
	return &Handler{
		triggers: triggers,
		states:   states,
		audit:    audit,
		rules:    rules,
	}
}

// SubmitTrigger ingests one trigger event. Vendor event shapes are
// adapted by the collaborator before they reach this endpoint.
func (h *Handler) SubmitTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var payload api.Trigger
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid trigger payload", http.StatusBadRequest)
		return
	}

	trigger := domain.Trigger{
		Kind:         domain.TriggerKind(payload.Kind),
		Resource:     adapters.MapResourceRefApiToDomain(payload.Resource),
		ChangeDetail: payload.ChangeDetail,
		TypeFilter:   payload.TypeFilter,
	}

	if err := h.triggers.Submit(ctx, trigger); err != nil {
		logger.Warn().Err(err).Msg("trigger rejected")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	states := h.states.States()
	report := api.StatusReport{Resources: make([]api.ResourceState, 0, len(states))}
	for resource, state := range states {
		report.Resources = append(report.Resources, api.ResourceState{
			Resource: resource,
			State:    string(state),
		})
	}
	sort.Slice(report.Resources, func(i, j int) bool {
		return report.Resources[i].Resource < report.Resources[j].Resource
	})

	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Error().Err(err).Msg("failed to encode status report")
	}
}

func (h *Handler) ListAuditRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	limit := parseLimit(r.URL.Query().Get("limit"))

	records, err := h.audit.GetRecent(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read audit records")
		http.Error(w, "audit store unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeRecords(logger, w, records)
}

func (h *Handler) ListResourceAuditRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	resourceType := chi.URLParam(r, "type")
	resourceID := chi.URLParam(r, "id")
	limit := parseLimit(r.URL.Query().Get("limit"))

	records, err := h.audit.GetByResource(ctx, resourceType, resourceID, limit)
	if err != nil {
		logger.Error().
			Err(err).
			Str("resource_type", resourceType).
			Str("resource_id", resourceID).
			Msg("failed to read audit records")
		http.Error(w, "audit store unavailable", http.StatusServiceUnavailable)
		return
	}
	h.writeRecords(logger, w, records)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var response []api.RuleInfo
	for _, rule := range h.rules.Rules() {
		info := api.RuleInfo{
			Name:          rule.Name,
			Description:   rule.Description,
			ResourceTypes: rule.ResourceTypes,
		}
		if rule.Action != nil {
			info.Action = rule.Action.Name
		}
		response = append(response, info)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode rules")
	}
}

func (h *Handler) writeRecords(logger *zerolog.Logger, w http.ResponseWriter, records []store.AuditRecord) {
	response := make([]api.AuditRecord, 0, len(records))
	for _, rec := range records {
		response = append(response, adapters.MapAuditRecordStoreToApi(rec))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode audit records")
	}
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
