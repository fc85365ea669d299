package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mvail/tourhost/internal/billing"
	"github.com/mvail/tourhost/internal/middleware"
)

// SetSubscriptionRequest represents the request body for
// POST /subscriptions/{clientID}.
type SetSubscriptionRequest struct {
	Plan string `json:"plan"`
}

// CheckoutRequest represents the request body for POST /billing/checkout.
type CheckoutRequest struct {
	ClientID   string `json:"client_id"`
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// CheckoutResponse carries the Stripe-hosted payment page URL.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// BillingHandlers holds dependencies for billing HTTP handlers.
type BillingHandlers struct {
	repo     billing.Repository
	checkout billing.CheckoutClient
}

// NewBillingHandlers creates a new BillingHandlers instance.
func NewBillingHandlers(repo billing.Repository, checkout billing.CheckoutClient) *BillingHandlers {
	return &BillingHandlers{repo: repo, checkout: checkout}
}

// ListInvoices handles GET /invoices.
func (h *BillingHandlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	invoices, err := h.repo.ListInvoices(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list invoices", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list invoices")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"invoices": invoices})
}

// ListSubscriptions handles GET /subscriptions.
func (h *BillingHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	subs, err := h.repo.ListSubscriptions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list subscriptions", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list subscriptions")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"subscriptions": subs})
}

// Route dispatches /subscriptions/{clientID} requests.
// POST   /subscriptions/{clientID} - assign or change the plan
// DELETE /subscriptions/{clientID} - cancel back to the free tier
func (h *BillingHandlers) Route(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimPrefix(r.URL.Path, "/subscriptions/")
	if clientID == "" || strings.Contains(clientID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Client ID is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.setSubscription(w, r, clientID)
	case http.MethodDelete:
		h.cancelSubscription(w, r, clientID)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

func (h *BillingHandlers) setSubscription(w http.ResponseWriter, r *http.Request, clientID string) {
	var req SetSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	sub, err := h.repo.SetSubscription(r.Context(), clientID, req.Plan)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownPlan)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnknownPlan, "Unknown subscription plan")
			return
		}
		slog.ErrorContext(r.Context(), "failed to set subscription", "error", err, "client_id", clientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to set subscription")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, sub)
}

func (h *BillingHandlers) cancelSubscription(w http.ResponseWriter, r *http.Request, clientID string) {
	sub, err := h.repo.CancelSubscription(r.Context(), clientID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to cancel subscription", "error", err, "client_id", clientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to cancel subscription")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, sub)
}

// Checkout handles POST /billing/checkout - creates a Stripe Checkout
// session for a paid plan. The subscription is activated by the payment
// confirmation flow, not here.
func (h *BillingHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "client_id is required")
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "success_url and cancel_url are required")
		return
	}

	session, err := h.checkout.CreateCheckoutSession(billing.CheckoutParams{
		ClientID:   req.ClientID,
		Plan:       req.Plan,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownPlan)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnknownPlan, "Plan is not purchasable")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create checkout session", "error", err, "client_id", req.ClientID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create checkout session")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, CheckoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}
