package domain

import "fmt"

// ObservationErrorKind separates terminal not-found failures from
// transient provider unreachability. Not-found drops the resource from
// active monitoring; unreachable is retried with backoff before it turns
// terminal.
type ObservationErrorKind string

const (
	ObservationNotFound    ObservationErrorKind = "not_found"
	ObservationUnreachable ObservationErrorKind = "unreachable"
)

// ObservationError reports a failed snapshot capture.
type ObservationError struct {
	Ref  ResourceRef
	Kind ObservationErrorKind
	Err  error
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("observe %s: %s: %v", e.Ref, e.Kind, e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }

// IsNotFound reports whether the observation failed because the resource
// no longer exists.
func (e *ObservationError) IsNotFound() bool { return e.Kind == ObservationNotFound }

// EvaluationError reports a predicate failure on malformed input. The
// affected rule yields NOT_APPLICABLE; other rules are unaffected.
type EvaluationError struct {
	Rule string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate rule %q: %v", e.Rule, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// RemediationError reports a failed remediation attempt. Terminal errors
// require human follow-up; the dispatcher does not retry them.
type RemediationError struct {
	Action   string
	Ref      ResourceRef
	Terminal bool
	Err      error
}

func (e *RemediationError) Error() string {
	state := "transient"
	if e.Terminal {
		state = "terminal"
	}
	return fmt.Sprintf("remediate %s with %q (%s): %v", e.Ref, e.Action, state, e.Err)
}

func (e *RemediationError) Unwrap() error { return e.Err }

// SinkError reports a failed audit delivery. Sink errors are never
// propagated into the compliance loop; deliveries are retried on a
// background schedule.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string { return fmt.Sprintf("audit sink: %v", e.Err) }

func (e *SinkError) Unwrap() error { return e.Err }
