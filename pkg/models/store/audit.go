package store

import "time"

// AuditRecord is the flattened persistence shape of a domain audit record.
// Remediation columns are empty strings / zero when the verdict produced
// no remediation attempt.
type AuditRecord struct {
	ID                  string
	ResourceType        string
	ResourceID          string
	Region              string
	Account             string
	Rule                string
	Compliance          string
	Reason              string
	RemediationAction   string
	RemediationStatus   string
	RemediationAttempts int
	RemediationReason   string
	EvaluatedAt         time.Time
	CreatedAt           time.Time
}
