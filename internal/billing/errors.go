package billing

import "errors"

var (
	ErrAccountNotFound = errors.New("billing: account not found")

	ErrAlreadySubscribed = errors.New("billing: subscription already active")
	ErrNothingToConfirm  = errors.New("billing: no subscription awaiting confirmation")
	ErrApprovalPending   = errors.New("billing: subscription not approved yet")
	ErrStateConflict     = errors.New("billing: subscription state changed concurrently")

	ErrProviderRejected    = errors.New("billing: payment rejected by provider")
	ErrProviderUnavailable = errors.New("billing: payment provider unavailable")

	ErrUnknownMethod         = errors.New("billing: unknown payment method")
	ErrMissingPaymentToken   = errors.New("billing: payment token is required")
	ErrMissingSubscriptionID = errors.New("billing: subscription id is required")
	ErrSubscriptionMismatch  = errors.New("billing: subscription id does not match the record awaiting confirmation")
	ErrNotConfigured         = errors.New("billing: provider is not configured")
	ErrUnsupportedOperation  = errors.New("billing: operation not supported by this provider")
)
