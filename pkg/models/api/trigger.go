package api

// Trigger is the inbound event payload accepted on the trigger endpoint.
// Kind is either "configuration_changed" or "periodic_sweep".
type Trigger struct {
	Kind         string      `json:"kind"`
	Resource     ResourceRef `json:"resource,omitempty"`
	ChangeDetail string      `json:"change_detail,omitempty"`
	TypeFilter   string      `json:"type_filter,omitempty"`
}
