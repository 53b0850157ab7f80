package billing

import "context"

// Method selects which payment provider handles a new subscription.
type Method string

const (
	// MethodDirectCharge settles a one-time card charge synchronously.
	MethodDirectCharge Method = "stripe"
	// MethodRecurring creates a provider-managed recurring subscription
	// that the member approves on the provider's site.
	MethodRecurring Method = "paypal"
)

// ParseMethod validates a client-supplied payment method name.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodDirectCharge:
		return MethodDirectCharge, nil
	case MethodRecurring:
		return MethodRecurring, nil
	default:
		return "", ErrUnknownMethod
	}
}

// ProviderStatus is the normalized state of a provider-side object. Each
// adapter maps its provider's vocabulary onto these five values so the
// lifecycle logic never sees provider-specific statuses.
type ProviderStatus string

const (
	ProviderApproved ProviderStatus = "approved"
	ProviderPending  ProviderStatus = "pending_approval"
	ProviderRejected ProviderStatus = "rejected"
	ProviderCanceled ProviderStatus = "canceled"
	ProviderUnknown  ProviderStatus = "unknown"
)

// ChargeRequest carries everything a direct-charge provider needs to settle
// a one-time payment.
type ChargeRequest struct {
	UserID       string
	Email        string
	PaymentToken string // provider payment method token collected client-side
	Amount       int64  // smallest currency unit
	Currency     string
	Description  string
}

// ChargeResult is the synchronous outcome of a direct charge.
type ChargeResult struct {
	Reference ProviderReference
	Status    ProviderStatus
}

// SubscriptionRequest carries the member identity a recurring provider needs
// to create a subscription for them.
type SubscriptionRequest struct {
	UserID string
	Email  string
	Name   string
}

// SubscriptionHandle is a freshly created recurring subscription awaiting
// member approval.
type SubscriptionHandle struct {
	Reference   ProviderReference
	Status      ProviderStatus
	ApprovalURL string // where the member approves the subscription
}

// Provider is the uniform adapter contract both payment integrations
// implement. An adapter only supports the operations that make sense for its
// model and returns ErrUnsupportedOperation for the rest; the lifecycle
// logic routes calls so unsupported combinations never happen in practice.
//
// All methods classify failures into ErrProviderRejected (the provider said
// no) or ErrProviderUnavailable (the provider could not be reached), so
// callers can map them onto HTTP 402 and 502 without knowing the provider.
type Provider interface {
	// Charge settles a one-time payment. Direct-charge providers only.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// CreateSubscription starts a recurring subscription in the provider's
	// approval-pending state. Recurring providers only.
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionHandle, error)

	// SubscriptionStatus fetches the current normalized state of a
	// previously created provider object. Safe to retry.
	SubscriptionStatus(ctx context.Context, ref ProviderReference) (ProviderStatus, error)

	// CancelSubscription cancels a provider-side subscription. Idempotent:
	// cancelling an already-cancelled subscription succeeds.
	CancelSubscription(ctx context.Context, ref ProviderReference) error
}
