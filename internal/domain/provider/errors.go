package provider

import "fmt"

// Provider names used in errors, logs and metrics.
const (
	NameInbox     = "support_inbox"
	NameTicketing = "ticketing"
)

// ProviderError carries the raw outcome of a non-2xx provider call.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}
