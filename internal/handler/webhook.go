// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements the Stripe webhook handler for processing billing events.
//
// Route:
//   - POST /api/webhook -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/leadwithheart/coach/internal/billing"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/metrics"
	"github.com/leadwithheart/coach/internal/service"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing       billing.Service
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, subscriptions service.SubscriptionService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:       billingService,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are public. Stripe authenticates with its signature header.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/webhook", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		writeReceived(w)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Verify signature
	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		metrics.StripeWebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	// Route to event-specific handler
	status := "processed"
	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "customer.subscription.created", "customer.subscription.updated":
		h.handleSubscriptionChanged(event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
		status = "ignored"
	}
	metrics.StripeWebhookEvents.WithLabelValues(string(event.Type), status).Inc()

	// Stripe only needs an acknowledgment; processing errors are logged and
	// reconciled by later subscription events.
	writeReceived(w)
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}

	if session.Customer == nil || session.Subscription == nil {
		h.logger.Warn("checkout session missing customer or subscription", "session_id", session.ID)
		return
	}

	customerID := session.Customer.ID
	email := session.CustomerEmail
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	userID, err := h.subscriptions.UserIDForCustomer(webhookCtx(), customerID, email)
	if err != nil {
		h.logger.Warn("no user for completed checkout",
			"customer_id", customerID, "email", email)
		return
	}

	if err := h.subscriptions.LinkCustomer(webhookCtx(), userID, customerID); err != nil {
		h.logger.Error("failed to link stripe customer", "error", err, "user_id", userID)
	}

	// The checkout tells us the user is now paying; the subscription event
	// that follows carries the period end.
	update := service.SubscriptionUpdate{
		UserID:               userID,
		Status:               domain.SubscriptionStatusActive,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: session.Subscription.ID,
	}
	if sub, err := h.billing.GetSubscription(session.Subscription.ID); err == nil {
		update.Status = domain.SubscriptionStatus(sub.Status)
		update.CurrentPeriodEnd = periodEnd(sub)
	}

	if _, err := h.subscriptions.ApplyStripeUpdate(webhookCtx(), update); err != nil {
		h.logger.Error("failed to apply checkout update", "error", err, "user_id", userID)
		return
	}

	h.logger.Info("checkout completed", "user_id", userID, "customer_id", customerID)
}

func (h *WebhookHandler) handleSubscriptionChanged(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return
	}

	// Guard against events for prices we don't sell (e.g. a one-off product
	// added later on the same Stripe account).
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		if price != nil && !h.billing.IsProPrice(price.ID) {
			h.logger.Warn("subscription event for unknown price",
				"subscription_id", sub.ID, "price_id", price.ID)
			return
		}
	}

	userID, err := h.subscriptions.UserIDForCustomer(webhookCtx(), sub.Customer.ID, sub.Customer.Email)
	if err != nil {
		h.logger.Warn("user not found for subscription event",
			"customer_id", sub.Customer.ID, "subscription_id", sub.ID)
		return
	}

	result, err := h.subscriptions.ApplyStripeUpdate(webhookCtx(), service.SubscriptionUpdate{
		UserID:               userID,
		Status:               domain.SubscriptionStatus(sub.Status),
		StripeCustomerID:     sub.Customer.ID,
		StripeSubscriptionID: sub.ID,
		CurrentPeriodEnd:     periodEnd(&sub),
	})
	if err != nil {
		h.logger.Error("failed to apply subscription update", "error", err, "user_id", userID)
		return
	}

	h.logger.Info("subscription event processed",
		"user_id", userID, "status", result.Status, "plan", result.Plan)
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	userID, err := h.subscriptions.UserIDForCustomer(webhookCtx(), sub.Customer.ID, sub.Customer.Email)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	if err := h.subscriptions.Downgrade(webhookCtx(), userID); err != nil {
		h.logger.Error("failed to downgrade subscription", "error", err, "user_id", userID)
		return
	}

	h.logger.Info("subscription deleted", "user_id", userID, "subscription_id", sub.ID)
}

// periodEnd extracts the current period end as a time, or nil when unset.
func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	return &t
}

// writeReceived sends the acknowledgment body Stripe integrations expect.
func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}

// webhookCtx returns a background context for webhook processing.
// Webhooks are async events and don't have a user request context.
func webhookCtx() context.Context {
	return context.Background()
}
