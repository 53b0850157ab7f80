package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"

	"github.com/misqat/backend/pkg/logger"
)

// PayPalConfig holds configuration for the PayPal recurring adapter.
type PayPalConfig struct {
	ClientID    string        `env:"PAYPAL_CLIENT_ID,required"`
	Secret      string        `env:"PAYPAL_SECRET,required"`
	PlanID      string        `env:"PAYPAL_PLAN_ID"`
	Environment string        `env:"PAYPAL_ENVIRONMENT" envDefault:"sandbox"`
	ReturnURL   string        `env:"PAYPAL_RETURN_URL,required"`
	CancelURL   string        `env:"PAYPAL_CANCEL_URL,required"`
	BrandName   string        `env:"PAYPAL_BRAND_NAME" envDefault:"Misqat"`
	Timeout     time.Duration `env:"PAYPAL_TIMEOUT" envDefault:"15s"`
}

// PayPalProvider implements Provider for PayPal recurring subscriptions.
// One-time charges report ErrUnsupportedOperation.
type PayPalProvider struct {
	client *paypal.Client
	config PayPalConfig
	log    *slog.Logger
}

// NewPayPalProvider creates a new PayPal recurring adapter and fetches an
// initial access token; the SDK refreshes it on expiry after that. A missing
// plan ID is tolerated here and reported per request, so the service can
// boot with PayPal half-configured in development.
func NewPayPalProvider(ctx context.Context, config PayPalConfig, log *slog.Logger) (*PayPalProvider, error) {
	if config.ClientID == "" || config.Secret == "" {
		return nil, fmt.Errorf("%w: paypal client credentials are required", ErrNotConfigured)
	}
	if config.ReturnURL == "" || config.CancelURL == "" {
		return nil, fmt.Errorf("%w: paypal return and cancel URLs are required", ErrNotConfigured)
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var base string
	switch strings.ToLower(config.Environment) {
	case "sandbox", "":
		base = paypal.APIBaseSandBox
	case "live", "production":
		base = paypal.APIBaseLive
	default:
		return nil, fmt.Errorf("%w: invalid paypal environment %q", ErrNotConfigured, config.Environment)
	}

	client, err := paypal.NewClient(config.ClientID, config.Secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}

	if _, err := client.GetAccessToken(ctx); err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	return &PayPalProvider{
		client: client,
		config: config,
		log:    log,
	}, nil
}

// Charge is not supported: PayPal handles recurring subscriptions only in
// this deployment.
func (p *PayPalProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return nil, fmt.Errorf("%w: paypal adapter handles recurring subscriptions only", ErrUnsupportedOperation)
}

// CreateSubscription starts a subscription on the configured billing plan.
// The returned handle carries the approval URL the member must visit.
func (p *PayPalProvider) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*SubscriptionHandle, error) {
	if p.config.PlanID == "" {
		return nil, fmt.Errorf("%w: paypal plan id is not set", ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	sub, err := p.client.CreateSubscription(ctx, paypal.SubscriptionBase{
		PlanID:   p.config.PlanID,
		CustomID: req.UserID,
		Subscriber: &paypal.Subscriber{
			EmailAddress: req.Email,
			Name: paypal.CreateOrderPayerName{
				GivenName: req.Name,
			},
		},
		ApplicationContext: &paypal.ApplicationContext{
			BrandName: p.config.BrandName,
			ReturnURL: p.config.ReturnURL,
			CancelURL: p.config.CancelURL,
		},
	})
	if err != nil {
		p.logPayPalError(ctx, "CreateSubscription", err)
		return nil, classifyPayPalError(err)
	}

	handle := &SubscriptionHandle{
		Reference: ProviderReference{Kind: RefSubscription, ID: sub.ID},
		Status:    mapPayPalStatus(sub.SubscriptionStatus),
	}
	for _, link := range sub.Links {
		if link.Rel == "approve" {
			handle.ApprovalURL = link.Href
			break
		}
	}
	if handle.ApprovalURL == "" {
		return nil, fmt.Errorf("%w: no approval link returned", ErrProviderUnavailable)
	}

	return handle, nil
}

// SubscriptionStatus fetches the subscription's current state.
func (p *PayPalProvider) SubscriptionStatus(ctx context.Context, ref ProviderReference) (ProviderStatus, error) {
	if ref.Kind != RefSubscription {
		return ProviderUnknown, fmt.Errorf("%w: paypal adapter only tracks subscriptions", ErrUnsupportedOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	sub, err := p.client.GetSubscriptionDetails(ctx, ref.ID)
	if err != nil {
		p.logPayPalError(ctx, "SubscriptionStatus", err)
		return ProviderUnknown, classifyPayPalError(err)
	}

	return mapPayPalStatus(sub.SubscriptionStatus), nil
}

// CancelSubscription cancels the subscription provider-side. A subscription
// that is already gone counts as cancelled.
func (p *PayPalProvider) CancelSubscription(ctx context.Context, ref ProviderReference) error {
	if ref.Kind != RefSubscription {
		return fmt.Errorf("%w: paypal adapter only tracks subscriptions", ErrUnsupportedOperation)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if err := p.client.CancelSubscription(ctx, ref.ID, "member cancelled via app"); err != nil {
		var respErr *paypal.ErrorResponse
		if errors.As(err, &respErr) && respErr.Response != nil {
			switch respErr.Response.StatusCode {
			case http.StatusNotFound, http.StatusUnprocessableEntity:
				// Already cancelled or expired provider-side.
				return nil
			}
		}
		p.logPayPalError(ctx, "CancelSubscription", err)
		return classifyPayPalError(err)
	}

	return nil
}

func (p *PayPalProvider) logPayPalError(ctx context.Context, operation string, err error) {
	var respErr *paypal.ErrorResponse
	if errors.As(err, &respErr) {
		status := 0
		if respErr.Response != nil {
			status = respErr.Response.StatusCode
		}
		p.log.ErrorContext(ctx, "paypal API error",
			slog.String("operation", operation),
			slog.String("name", respErr.Name),
			slog.String("message", respErr.Message),
			slog.Int("status_code", status),
		)
		return
	}
	p.log.ErrorContext(ctx, "paypal transport error",
		slog.String("operation", operation), logger.Error(err))
}

func classifyPayPalError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrProviderUnavailable, err)
	}

	var respErr *paypal.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		if code >= 500 || code == http.StatusTooManyRequests {
			return errors.Join(ErrProviderUnavailable, err)
		}
		return errors.Join(ErrProviderRejected, err)
	}

	return errors.Join(ErrProviderUnavailable, err)
}

func mapPayPalStatus(status paypal.SubscriptionStatus) ProviderStatus {
	switch status {
	case paypal.SubscriptionStatusApproved, paypal.SubscriptionStatusActive:
		return ProviderApproved
	case paypal.SubscriptionStatusApprovalPending:
		return ProviderPending
	case paypal.SubscriptionStatusSuspended, paypal.SubscriptionStatusCancelled, paypal.SubscriptionStatusExpired:
		return ProviderCanceled
	default:
		return ProviderUnknown
	}
}
