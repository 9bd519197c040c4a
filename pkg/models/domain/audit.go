package domain

import "time"

// RemediationStatus is the terminal state of a remediation attempt.
type RemediationStatus string

const (
	RemediationSucceeded RemediationStatus = "succeeded"
	RemediationFailed    RemediationStatus = "failed"
	RemediationSkipped   RemediationStatus = "skipped"
)

// RemediationOutcome reports how a dispatch ended. Failed outcomes are
// terminal: the dispatcher does not re-attempt automatically and the
// record is the human-visible escalation.
type RemediationOutcome struct {
	Action      string
	Status      RemediationStatus
	Attempts    int
	Reason      string
	CompletedAt time.Time
}

// AuditRecord is an append-only log entry combining one verdict with the
// optional remediation outcome it led to. Records are created at
// evaluation/remediation completion and never updated.
type AuditRecord struct {
	ID          string
	Resource    ResourceRef
	Verdict     Verdict
	Remediation *RemediationOutcome
	CreatedAt   time.Time
}
