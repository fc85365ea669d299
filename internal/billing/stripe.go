package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

// CheckoutParams carries what the handler knows about a plan purchase.
type CheckoutParams struct {
	ClientID   string
	Plan       string
	SuccessURL string
	CancelURL  string
}

// CheckoutClient is an interface for Stripe checkout operations to enable
// testing with mocks.
type CheckoutClient interface {
	CreateCheckoutSession(params CheckoutParams) (*stripe.CheckoutSession, error)
}

// StripeClient implements CheckoutClient using the real Stripe SDK.
type StripeClient struct{}

// NewStripeClient creates a new Stripe client with the given API key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{}
}

// CreateCheckoutSession creates a subscription-mode Checkout Session for
// the requested plan. The client id travels in metadata so the webhook
// that confirms payment can resolve which subscription to activate.
func (c *StripeClient) CreateCheckoutSession(params CheckoutParams) (*stripe.CheckoutSession, error) {
	plan, err := LookupPlan(params.Plan)
	if err != nil {
		return nil, err
	}
	if plan.StripePriceID == "" {
		return nil, fmt.Errorf("plan %q is not purchasable: %w", params.Plan, ErrUnknownPlan)
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(plan.StripePriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			"client_id": params.ClientID,
			"plan":      params.Plan,
		},
	}

	return session.New(sessionParams)
}
