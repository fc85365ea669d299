// Package billing provides invoices, subscription plans, and Stripe
// checkout for plan purchases.
package billing

import "errors"

// InvoiceStatus is an invoice's payment state.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "paid"
	InvoicePending InvoiceStatus = "pending"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice is one billing line for a client.
type Invoice struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"client_id"`
	ClientName  string        `json:"client_name"`
	AmountCents int64         `json:"amount_cents"`
	Status      InvoiceStatus `json:"status"`
	DueDate     string        `json:"due_date"`
	PaidDate    string        `json:"paid_date,omitempty"`
}

// Plan is a subscription tier with its monthly price.
type Plan struct {
	Name          string `json:"name"`
	MonthlyCents  int64  `json:"monthly_cents"`
	StripePriceID string `json:"stripe_price_id,omitempty"`
	UsageLimit    int64  `json:"usage_limit"`
}

// Subscription links a client to its active plan.
type Subscription struct {
	ClientID string `json:"client_id"`
	Plan     string `json:"plan"`
}

// Package errors.
var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrSubscriptionMissing = errors.New("no subscription for client")
)

// Catalogue is the fixed set of sellable plans. The free tier has no
// Stripe price: downgrades to it never go through checkout.
var Catalogue = map[string]Plan{
	"free":       {Name: "free", MonthlyCents: 0, UsageLimit: 5_000},
	"premium":    {Name: "premium", MonthlyCents: 29_900, StripePriceID: "price_premium_monthly", UsageLimit: 25_000},
	"enterprise": {Name: "enterprise", MonthlyCents: 89_900, StripePriceID: "price_enterprise_monthly", UsageLimit: 100_000},
}

// LookupPlan resolves a plan name against the catalogue.
func LookupPlan(name string) (Plan, error) {
	p, ok := Catalogue[name]
	if !ok {
		return Plan{}, ErrUnknownPlan
	}
	return p, nil
}
