package models

// ProvisionRequest asks the provisioning pool to back a resource with a
// container.
type ProvisionRequest struct {
	ResourceID string
	Owner      string
	CPU        int
	RAM        int
	Storage    int
}

// ProvisionResult is reported back once provisioning finishes.
type ProvisionResult struct {
	ResourceID string
	Name       string
	Err        error
}
