package billing

import "context"

// Account is the billing view of a member: identity for provider calls and
// notifications, plus the embedded subscription record.
type Account struct {
	ID            string
	Email         string
	Name          string
	Gender        string
	GuardianEmail string // set for members whose guardian gets copied on notifications
	Subscription  Record
}

// Store persists subscription records. Each member has exactly one record,
// embedded in their account document.
type Store interface {
	// Account loads a member's billing view.
	// Returns ErrAccountNotFound if no such member exists.
	Account(ctx context.Context, userID string) (*Account, error)

	// UpdateRecord replaces the member's subscription record only if the
	// stored record still matches expect, the record the caller observed
	// when it read the account. Status alone is not enough of a guard
	// because some transitions keep it unchanged, so implementations
	// compare status and updatedAt. Implementations must also refresh the
	// member's denormalized entitlement flag from the new record. Returns
	// ErrStateConflict when the guard fails.
	UpdateRecord(ctx context.Context, userID string, expect, rec Record) error
}
