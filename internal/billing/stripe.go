package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/misqat/backend/pkg/logger"
)

const metadataUserIDKey = "user_id"

// StripeConfig holds configuration for the Stripe direct-charge adapter.
type StripeConfig struct {
	SecretKey string        `env:"STRIPE_SECRET_KEY,required"`
	Timeout   time.Duration `env:"STRIPE_TIMEOUT" envDefault:"15s"`
}

// StripeProvider implements Provider for Stripe. It only supports one-time
// charges; the recurring operations report ErrUnsupportedOperation.
type StripeProvider struct {
	client *client.API
	config StripeConfig
	log    *slog.Logger
}

// NewStripeProvider creates a new Stripe direct-charge adapter.
func NewStripeProvider(config StripeConfig, log *slog.Logger) (*StripeProvider, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("%w: stripe secret key is required", ErrNotConfigured)
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	sc := &client.API{}
	sc.Init(config.SecretKey, nil)

	return &StripeProvider{
		client: sc,
		config: config,
		log:    log,
	}, nil
}

// Charge creates and confirms a payment intent in one call. Redirect-based
// payment methods are disallowed because the charge must settle while the
// request is still in flight.
func (p *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Description:   stripe.String(req.Description),
		PaymentMethod: stripe.String(req.PaymentToken),
		ReceiptEmail:  stripe.String(req.Email),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.AddMetadata(metadataUserIDKey, req.UserID)

	pi, err := p.client.PaymentIntents.New(params)
	if err != nil {
		p.logStripeError(ctx, "Charge", err)
		return nil, classifyStripeError(err)
	}

	return &ChargeResult{
		Reference: ProviderReference{Kind: RefCharge, ID: pi.ID},
		Status:    mapPaymentIntentStatus(pi.Status),
	}, nil
}

// CreateSubscription is not supported: Stripe handles one-time charges only
// in this deployment.
func (p *StripeProvider) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionHandle, error) {
	return nil, fmt.Errorf("%w: stripe adapter handles one-time charges only", ErrUnsupportedOperation)
}

// SubscriptionStatus reports the settlement state of a previous charge.
func (p *StripeProvider) SubscriptionStatus(ctx context.Context, ref ProviderReference) (ProviderStatus, error) {
	if ref.Kind != RefCharge {
		return ProviderUnknown, fmt.Errorf("%w: stripe adapter only tracks charges", ErrUnsupportedOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}

	pi, err := p.client.PaymentIntents.Get(ref.ID, params)
	if err != nil {
		p.logStripeError(ctx, "SubscriptionStatus", err)
		return ProviderUnknown, classifyStripeError(err)
	}

	return mapPaymentIntentStatus(pi.Status), nil
}

// CancelSubscription is not supported: a settled one-time charge has nothing
// to cancel provider-side.
func (p *StripeProvider) CancelSubscription(ctx context.Context, ref ProviderReference) error {
	return fmt.Errorf("%w: stripe adapter handles one-time charges only", ErrUnsupportedOperation)
}

func (p *StripeProvider) logStripeError(ctx context.Context, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		p.log.ErrorContext(ctx, "stripe API error",
			slog.String("operation", operation),
			slog.String("type", string(stripeErr.Type)),
			slog.String("code", string(stripeErr.Code)),
			slog.String("request_id", stripeErr.RequestID),
			slog.Int("status_code", stripeErr.HTTPStatusCode),
		)
		return
	}
	p.log.ErrorContext(ctx, "stripe transport error",
		slog.String("operation", operation), logger.Error(err))
}

// classifyStripeError folds Stripe's error taxonomy into the two outcomes
// the lifecycle logic distinguishes: the provider said no, or the provider
// could not be reached.
func classifyStripeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrProviderUnavailable, err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return errors.Join(ErrProviderRejected, err)
		}
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 429 {
			return errors.Join(ErrProviderUnavailable, err)
		}
		return errors.Join(ErrProviderRejected, err)
	}

	// Anything without a structured Stripe error is a transport failure.
	return errors.Join(ErrProviderUnavailable, err)
}

func mapPaymentIntentStatus(status stripe.PaymentIntentStatus) ProviderStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return ProviderApproved
	case stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresCapture:
		return ProviderPending
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return ProviderRejected
	case stripe.PaymentIntentStatusCanceled:
		return ProviderCanceled
	default:
		return ProviderUnknown
	}
}
