package handler

import (
	"net/http"

	"github.com/misqat/backend/internal/billing"
)

// SubscriptionHandler serves the subscription lifecycle endpoints.
type SubscriptionHandler struct {
	billing billing.Service
}

// NewSubscriptionHandler creates the subscription endpoints handler.
func NewSubscriptionHandler(billingSvc billing.Service) *SubscriptionHandler {
	if billingSvc == nil {
		panic("handler: billing service is required")
	}
	return &SubscriptionHandler{billing: billingSvc}
}

type subscribeRequest struct {
	Method       string `json:"method"`
	PaymentToken string `json:"paymentToken,omitempty"`
}

type subscriptionResponse struct {
	Subscription billing.Record `json:"subscription"`
	ApprovalURL  string         `json:"approvalUrl,omitempty"`
}

// Subscribe handles POST /subscription/subscribe.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	method, err := billing.ParseMethod(req.Method)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.billing.Subscribe(r.Context(), userIDFromContext(r.Context()), method, req.PaymentToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.ApprovalURL != "" {
		status = http.StatusAccepted
	}
	respond(w, status, subscriptionResponse{
		Subscription: res.Record,
		ApprovalURL:  res.ApprovalURL,
	})
}

type confirmRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

// Confirm handles POST /subscription/confirm.
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	rec, err := h.billing.Confirm(r.Context(), userIDFromContext(r.Context()), req.SubscriptionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, subscriptionResponse{Subscription: *rec})
}

// Cancel handles POST /subscription/cancel.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	rec, err := h.billing.Cancel(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, subscriptionResponse{Subscription: *rec})
}

// Current handles GET /subscription.
func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	rec, err := h.billing.Current(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, subscriptionResponse{Subscription: *rec})
}
