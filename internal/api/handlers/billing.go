package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrfeedback/internal/billing"
	"qrfeedback/internal/core"
	"qrfeedback/internal/external"
)

// CheckoutStarter creates a Stripe Checkout Session.
// Implemented by external.StripeClient.
type CheckoutStarter interface {
	CreateCheckoutSession(ctx context.Context, p external.CheckoutParams) (sessionID string, checkoutURL string, err error)
}

// createCheckoutRequest is the legacy checkout body. Field names are part of
// the frozen contract.
type createCheckoutRequest struct {
	PriceID string `json:"priceId"`
	UserID  string `json:"userId"`
}

// BillingHandler serves the plan catalog and the checkout entry point.
type BillingHandler struct {
	catalog  billing.Catalog
	checkout CheckoutStarter
	logger   *slog.Logger
}

// NewBillingHandler creates a new BillingHandler with the provided
// dependencies.
func NewBillingHandler(catalog billing.Catalog, checkout CheckoutStarter, l *slog.Logger) *BillingHandler {
	if l == nil {
		l = slog.Default()
	}
	return &BillingHandler{
		catalog:  catalog,
		checkout: checkout,
		logger:   l,
	}
}

// RegisterRoutes mounts the plan catalog under /v1.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/plans", h.Plans)
}

// RegisterLegacyRoutes mounts the checkout endpoint at its original root
// path, outside the /v1 tree. The frontend calls it verbatim.
func (h *BillingHandler) RegisterLegacyRoutes(r chi.Router) {
	r.Post("/api/create-checkout", h.CreateCheckout)
}

// Plans handles GET /v1/plans: the public catalog for the pricing page.
func (h *BillingHandler) Plans(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.catalog.Plans()})
}

// CreateCheckout handles POST /api/create-checkout.
//
// This endpoint preserves the exact legacy contract: body {priceId, userId},
// success is 200 {"sessionId": ...}, and every failure -- bad JSON, unknown
// price, Stripe being down -- is 500 {"error": ...}. No other status codes,
// no response envelope.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		h.checkoutError(w, r, "invalid request body", err)
		return
	}
	if req.PriceID == "" || req.UserID == "" {
		h.checkoutError(w, r, "missing priceId or userId", nil)
		return
	}

	plan, ok := h.catalog.PlanByPriceID(req.PriceID)
	if !ok {
		h.checkoutError(w, r, "unknown price", nil)
		return
	}

	sessionID, _, err := h.checkout.CreateCheckoutSession(r.Context(), external.CheckoutParams{
		UserID:  req.UserID,
		PriceID: req.PriceID,
		Plan:    plan.Tier,
	})
	if err != nil {
		h.checkoutError(w, r, "stripe session creation failed", err)
		return
	}

	writeLegacyJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

// checkoutError logs the real cause and returns the legacy opaque 500 body.
func (h *BillingHandler) checkoutError(w http.ResponseWriter, r *http.Request, reason string, err error) {
	h.logger.ErrorContext(r.Context(), "checkout session creation failed",
		"reason", reason,
		"error", err,
	)
	writeLegacyJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "Error creating checkout session",
	})
}

func writeLegacyJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
