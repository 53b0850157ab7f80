package handler

import (
	"errors"
	"net/http"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/internal/user"
	"github.com/misqat/backend/pkg/validator"
)

// mapError folds domain errors into the uniform error envelope. Unrecognized
// errors get a generic 500 so internals never leak to clients.
func mapError(err error) (int, errorDetail) {
	if ve := validator.Extract(err); ve != nil {
		details := make(map[string][]string, len(ve.Fields()))
		for _, field := range ve.Fields() {
			details[field] = ve.Get(field)
		}
		return http.StatusUnprocessableEntity, errorDetail{
			Code:    "validation_error",
			Message: "request validation failed",
			Details: details,
		}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorDetail{Code: "invalid_credentials", Message: "invalid email or password"}
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorDetail{Code: "unauthorized", Message: "missing or invalid access token"}
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, errorDetail{Code: "email_taken", Message: "email is already registered"}

	case errors.Is(err, billing.ErrAccountNotFound), errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: "account not found"}

	case errors.Is(err, billing.ErrAlreadySubscribed):
		return http.StatusConflict, errorDetail{Code: "already_subscribed", Message: "subscription is already active"}
	case errors.Is(err, billing.ErrApprovalPending):
		return http.StatusConflict, errorDetail{Code: "approval_pending", Message: "subscription is awaiting approval"}
	case errors.Is(err, billing.ErrNothingToConfirm):
		return http.StatusConflict, errorDetail{Code: "nothing_to_confirm", Message: "no subscription awaiting confirmation"}
	case errors.Is(err, billing.ErrStateConflict):
		return http.StatusConflict, errorDetail{Code: "state_conflict", Message: "subscription changed concurrently, reload and retry"}

	case errors.Is(err, billing.ErrUnknownMethod):
		return http.StatusBadRequest, errorDetail{Code: "unknown_payment_method", Message: "unsupported payment method"}
	case errors.Is(err, billing.ErrMissingPaymentToken):
		return http.StatusBadRequest, errorDetail{Code: "missing_payment_token", Message: "payment token is required for card payments"}
	case errors.Is(err, billing.ErrMissingSubscriptionID):
		return http.StatusBadRequest, errorDetail{Code: "missing_subscription_id", Message: "subscription id is required"}
	case errors.Is(err, billing.ErrSubscriptionMismatch):
		return http.StatusConflict, errorDetail{Code: "subscription_mismatch", Message: "subscription id does not match the one awaiting confirmation"}

	case errors.Is(err, billing.ErrProviderRejected):
		return http.StatusBadRequest, errorDetail{Code: "payment_rejected", Message: "payment was rejected by the provider"}
	case errors.Is(err, billing.ErrProviderUnavailable):
		return http.StatusBadGateway, errorDetail{Code: "provider_unavailable", Message: "payment provider is temporarily unavailable"}
	case errors.Is(err, billing.ErrNotConfigured):
		return http.StatusInternalServerError, errorDetail{Code: "configuration_error", Message: "payment provider is not configured"}
	}

	return http.StatusInternalServerError, errorDetail{Code: "internal_error", Message: "something went wrong"}
}
