package provider

import "fmt"

// AuthError reports a missing or rejected credential for an external provider.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %s", e.Provider, e.Reason)
}

// ProviderError reports an upstream provider failure that is not the caller's
// fault.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CancelledError reports that an in-flight provider call was abandoned because
// its context was cancelled.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }
