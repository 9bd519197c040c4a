package api

type ResourceState struct {
	Resource string `json:"resource"`
	State    string `json:"state"`
}

type StatusReport struct {
	Resources []ResourceState `json:"resources"`
}

type RuleInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	ResourceTypes []string `json:"resource_types"`
	Action        string   `json:"action,omitempty"`
}
