// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements billing endpoints backed by Stripe.
//
// Routes handled:
//   - GET  /api/subscription            -> GetSubscription
//   - POST /api/stripe/create-checkout  -> CreateCheckout
//   - POST /api/stripe/customer-portal  -> OpenPortal
//   - POST /api/subscription/cancel     -> CancelSubscription
//   - POST /api/subscription/reactivate -> ReactivateSubscription
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/billing"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/service"
)

// BillingHandler handles billing and subscription HTTP requests.
type BillingHandler struct {
	billing       billing.Service
	subscriptions service.SubscriptionService
	baseURL       string
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(billingService billing.Service, subscriptions service.SubscriptionService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:       billingService,
		subscriptions: subscriptions,
		baseURL:       baseURL,
		logger:        logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/subscription", requireUser(http.HandlerFunc(h.GetSubscription)))
	mux.Handle("POST /api/stripe/create-checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/stripe/customer-portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /api/subscription/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/subscription/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// =============================================================================
// Request / Response Types
// =============================================================================

type subscriptionResponse struct {
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	Tier             string     `json:"tier"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}

type checkoutRequest struct {
	Interval string `json:"interval"` // "monthly" or "yearly"
}

// =============================================================================
// Handlers
// =============================================================================

// GetSubscription returns the caller's subscription state and derived tier.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	sub, err := h.subscriptions.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tier, err := h.subscriptions.CurrentTier(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := subscriptionResponse{
		Plan:   string(domain.SubscriptionPlanFree),
		Status: string(domain.SubscriptionStatusFree),
		Tier:   string(tier),
	}
	if sub != nil {
		resp.Plan = string(sub.Plan)
		resp.Status = string(sub.Status)
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd
	}

	respondJSON(w, h.logger, http.StatusOK, resp)
}

// CreateCheckout creates a Stripe Checkout session for the Pro plan and
// returns its URL. The customer is created and linked on first checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "", "Billing is not configured"))
		return
	}

	user := auth.GetUser(r.Context())
	profile := auth.GetProfile(r.Context())

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	priceID := h.billing.PriceIDForInterval(req.Interval)
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Interval must be monthly or yearly"))
		return
	}

	customerID, err := h.ensureCustomer(r, user, profile)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	successURL := h.baseURL + "/settings?checkout=success"
	cancelURL := h.baseURL + "/settings?checkout=canceled"

	url, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.CreateCheckout", "Failed to start checkout"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"url": url})
}

// OpenPortal creates a Stripe customer portal session and returns its URL.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "", "Billing is not configured"))
		return
	}

	user := auth.GetUser(r.Context())

	sub, err := h.subscriptions.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if sub == nil || sub.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No billing account yet"))
		return
	}

	url, err := h.billing.CreatePortalSession(sub.StripeCustomerID, h.baseURL+"/settings")
	if err != nil {
		h.logger.Error("failed to create portal session", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.OpenPortal", "Failed to open billing portal"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{"url": url})
}

// CancelSubscription schedules the caller's subscription to cancel at the end
// of the current billing period. Access continues until then.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "", "Billing is not configured"))
		return
	}

	user := auth.GetUser(r.Context())

	sub, err := h.subscriptions.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if sub == nil || sub.StripeSubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No active subscription"))
		return
	}

	if err := h.billing.CancelSubscription(sub.StripeSubscriptionID); err != nil {
		h.logger.Error("failed to cancel subscription", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.CancelSubscription", "Failed to cancel subscription"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Your subscription will end at the close of the current billing period.",
	})
}

// ReactivateSubscription undoes a pending cancellation before the period ends.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "", "Billing is not configured"))
		return
	}

	user := auth.GetUser(r.Context())

	sub, err := h.subscriptions.GetByUserID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if sub == nil || sub.StripeSubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "No subscription to reactivate"))
		return
	}

	if err := h.billing.ReactivateSubscription(sub.StripeSubscriptionID); err != nil {
		h.logger.Error("failed to reactivate subscription", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, "BillingHandler.ReactivateSubscription", "Failed to reactivate subscription"))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Your subscription has been reactivated.",
	})
}

// ensureCustomer returns the user's Stripe customer id, creating and linking
// one on first use.
func (h *BillingHandler) ensureCustomer(r *http.Request, user *domain.User, profile *domain.Profile) (string, error) {
	sub, err := h.subscriptions.GetByUserID(r.Context(), user.ID)
	if err != nil {
		return "", err
	}
	if sub != nil && sub.StripeCustomerID != "" {
		return sub.StripeCustomerID, nil
	}

	customerID, err := h.billing.CreateCustomer(user.Email, user.DisplayName(profile))
	if err != nil {
		return "", domain.Internal(err, "BillingHandler.ensureCustomer", "Failed to create billing account")
	}

	if err := h.subscriptions.LinkCustomer(r.Context(), user.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}
