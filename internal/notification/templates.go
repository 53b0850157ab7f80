package notification

import (
	"fmt"
	"html"

	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/pkg/email"
)

func memberMessage(acct billing.Account, ev billing.Event) (email.Message, error) {
	name := html.EscapeString(acct.Name)

	switch ev {
	case billing.EventActivated:
		return email.Message{
			To:      acct.Email,
			Subject: "Your Misqat membership is active",
			BodyHTML: fmt.Sprintf(
				"<p>Salam %s,</p><p>Your membership subscription is now active. "+
					"You have full access to all member features.</p>", name),
			Tag: "subscription-activated",
		}, nil

	case billing.EventCanceled:
		return email.Message{
			To:      acct.Email,
			Subject: "Your Misqat membership was cancelled",
			BodyHTML: fmt.Sprintf(
				"<p>Salam %s,</p><p>Your membership subscription has been cancelled. "+
					"You can subscribe again at any time from the app.</p>", name),
			Tag: "subscription-canceled",
		}, nil

	case billing.EventPaymentFailed:
		return email.Message{
			To:      acct.Email,
			Subject: "Your Misqat membership payment failed",
			BodyHTML: fmt.Sprintf(
				"<p>Salam %s,</p><p>We could not complete your membership payment. "+
					"No subscription was started and nothing was charged. Please check "+
					"your payment details and try again.</p>", name),
			Tag: "payment-failed",
		}, nil

	default:
		return email.Message{}, fmt.Errorf("notification: no member template for event %s", ev)
	}
}

func guardianMessage(acct billing.Account, ev billing.Event) (email.Message, error) {
	name := html.EscapeString(acct.Name)

	switch ev {
	case billing.EventActivated:
		return email.Message{
			To:      acct.GuardianEmail,
			Subject: fmt.Sprintf("%s's Misqat membership is active", name),
			BodyHTML: fmt.Sprintf(
				"<p>Salam,</p><p>As %s's guardian, we are letting you know their "+
					"membership subscription is now active.</p>", name),
			Tag: "guardian-subscription-activated",
		}, nil

	case billing.EventCanceled:
		return email.Message{
			To:      acct.GuardianEmail,
			Subject: fmt.Sprintf("%s's Misqat membership was cancelled", name),
			BodyHTML: fmt.Sprintf(
				"<p>Salam,</p><p>As %s's guardian, we are letting you know their "+
					"membership subscription has been cancelled.</p>", name),
			Tag: "guardian-subscription-canceled",
		}, nil

	case billing.EventPaymentFailed:
		return email.Message{
			To:      acct.GuardianEmail,
			Subject: fmt.Sprintf("%s's Misqat membership payment failed", name),
			BodyHTML: fmt.Sprintf(
				"<p>Salam,</p><p>As %s's guardian, we are letting you know their "+
					"membership payment could not be completed. No subscription was "+
					"started.</p>", name),
			Tag: "guardian-payment-failed",
		}, nil

	default:
		return email.Message{}, fmt.Errorf("notification: no guardian template for event %s", ev)
	}
}
