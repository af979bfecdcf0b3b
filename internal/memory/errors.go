package memory

import "fmt"

// ValidationError reports rejected input. The store refuses to hold malformed
// records rather than repairing them.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a lookup for a memory that does not exist in the
// addressed tier.
type NotFoundError struct {
	Tier Tier
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s-term memory %d not found", e.Tier, e.ID)
}
