package api

import "time"

type Compliance string

const (
	ComplianceCompliant     Compliance = "COMPLIANT"
	ComplianceNonCompliant  Compliance = "NON_COMPLIANT"
	ComplianceNotApplicable Compliance = "NOT_APPLICABLE"
)

type ResourceRef struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Region  string `json:"region,omitempty"`
	Account string `json:"account,omitempty"`
}

type Verdict struct {
	Rule        string     `json:"rule"`
	Compliance  Compliance `json:"compliance"`
	Reason      string     `json:"reason"`
	EvaluatedAt time.Time  `json:"evaluated_at"`
}

type RemediationOutcome struct {
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	Reason      string    `json:"reason"`
	CompletedAt time.Time `json:"completed_at"`
}

type AuditRecord struct {
	ID          string              `json:"id"`
	Resource    ResourceRef         `json:"resource"`
	Verdict     Verdict             `json:"verdict"`
	Remediation *RemediationOutcome `json:"remediation,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}
