package adapters

import (
	"github.com/de-tools/cloud-warden/pkg/models/api"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/models/store"
)

func MapResourceRefDomainToApi(r domain.ResourceRef) api.ResourceRef {
	return api.ResourceRef{
		Type:    r.Type,
		ID:      r.ID,
		Region:  r.Region,
		Account: r.Account,
	}
}

func MapResourceRefApiToDomain(r api.ResourceRef) domain.ResourceRef {
	return domain.ResourceRef{
		Type:    r.Type,
		ID:      r.ID,
		Region:  r.Region,
		Account: r.Account,
	}
}

func MapVerdictDomainToApi(v domain.Verdict) api.Verdict {
	return api.Verdict{
		Rule:        v.Rule,
		Compliance:  api.Compliance(v.Compliance),
		Reason:      v.Reason,
		EvaluatedAt: v.EvaluatedAt,
	}
}

func MapOutcomeDomainToApi(o domain.RemediationOutcome) api.RemediationOutcome {
	return api.RemediationOutcome{
		Action:      o.Action,
		Status:      string(o.Status),
		Attempts:    o.Attempts,
		Reason:      o.Reason,
		CompletedAt: o.CompletedAt,
	}
}

func MapAuditRecordDomainToApi(r domain.AuditRecord) api.AuditRecord {
	res := api.AuditRecord{
		ID:        r.ID,
		Resource:  MapResourceRefDomainToApi(r.Resource),
		Verdict:   MapVerdictDomainToApi(r.Verdict),
		CreatedAt: r.CreatedAt,
	}
	if r.Remediation != nil {
		outcome := MapOutcomeDomainToApi(*r.Remediation)
		res.Remediation = &outcome
	}
	return res
}

func MapAuditRecordDomainToStore(r domain.AuditRecord) store.AuditRecord {
	res := store.AuditRecord{
		ID:           r.ID,
		ResourceType: r.Resource.Type,
		ResourceID:   r.Resource.ID,
		Region:       r.Resource.Region,
		Account:      r.Resource.Account,
		Rule:         r.Verdict.Rule,
		Compliance:   string(r.Verdict.Compliance),
		Reason:       r.Verdict.Reason,
		EvaluatedAt:  r.Verdict.EvaluatedAt,
		CreatedAt:    r.CreatedAt,
	}
	if r.Remediation != nil {
		res.RemediationAction = r.Remediation.Action
		res.RemediationStatus = string(r.Remediation.Status)
		res.RemediationAttempts = r.Remediation.Attempts
		res.RemediationReason = r.Remediation.Reason
	}
	return res
}

func MapAuditRecordStoreToApi(r store.AuditRecord) api.AuditRecord {
	res := api.AuditRecord{
		ID: r.ID,
		Resource: api.ResourceRef{
			Type:    r.ResourceType,
			ID:      r.ResourceID,
			Region:  r.Region,
			Account: r.Account,
		},
		Verdict: api.Verdict{
			Rule:        r.Rule,
			Compliance:  api.Compliance(r.Compliance),
			Reason:      r.Reason,
			EvaluatedAt: r.EvaluatedAt,
		},
		CreatedAt: r.CreatedAt,
	}
	if r.RemediationStatus != "" {
		res.Remediation = &api.RemediationOutcome{
			Action:   r.RemediationAction,
			Status:   r.RemediationStatus,
			Attempts: r.RemediationAttempts,
			Reason:   r.RemediationReason,
		}
	}
	return res
}
