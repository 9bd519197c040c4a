package domain

import "time"

// TriggerKind distinguishes the two inbound event shapes the loop accepts.
type TriggerKind string

const (
	// TriggerConfigurationChanged re-evaluates a single resource after a
	// configuration-change notification.
	TriggerConfigurationChanged TriggerKind = "configuration_changed"
	// TriggerPeriodicSweep re-evaluates every resource matching a type
	// filter on a timer.
	TriggerPeriodicSweep TriggerKind = "periodic_sweep"
)

// Trigger is a normalized inbound event. Collaborators adapt their
// vendor-specific event shapes into one of the two kinds before
// submission.
type Trigger struct {
	Kind         TriggerKind
	Resource     ResourceRef
	ChangeDetail string
	TypeFilter   string
	ReceivedAt   time.Time
}
