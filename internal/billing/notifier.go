package billing

import "context"

// Event names a lifecycle transition worth telling the member about.
type Event string

const (
	EventActivated     Event = "subscription_activated"
	EventCanceled      Event = "subscription_canceled"
	EventPaymentFailed Event = "payment_failed"
)

// Notifier delivers lifecycle notifications. Implementations must return
// quickly and never block on delivery; the lifecycle logic logs returned
// errors and ignores them, so a broken mail pipeline cannot fail a payment.
type Notifier interface {
	// NotifyUser tells the member about a transition on their subscription.
	NotifyUser(ctx context.Context, acct Account, ev Event) error

	// NotifyGuardian copies the member's guardian on the same transition.
	// Only called when the account carries a guardian email.
	NotifyGuardian(ctx context.Context, acct Account, ev Event) error
}
