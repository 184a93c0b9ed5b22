/*
hooks.go - Internal event hooks for the booking/payment subsystem

PURPOSE:
  The payment gateway and the payout back office call these when a record
  changes state. Each hook hands the id to the sync adapter and answers
  202 Accepted regardless of the outcome: a ledger failure must never fail
  the caller's own transition. Outcomes are logged by the adapter, and the
  batch reconciliation picks up anything that did not land.

ENDPOINTS (X-Hook-Secret required):
  POST /api/hooks/payments/{id}/success
  POST /api/hooks/payouts/{id}/approved
  POST /api/hooks/payouts/{id}/completed

SEE ALSO:
  - syncer/syncer.go: OnPaymentSuccess, OnPayoutApproved, OnPayoutCompleted
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type hookAck struct {
	Accepted string `json:"accepted"`
}

// PaymentSucceeded records rent income for a settled payment.
func (h *Handler) PaymentSucceeded(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.Syncer.OnPaymentSuccess(r.Context(), id)
	writeJSON(w, http.StatusAccepted, hookAck{Accepted: id})
}

// PayoutApproved records the withdrawal for an approved payout.
func (h *Handler) PayoutApproved(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.Syncer.OnPayoutApproved(r.Context(), id)
	writeJSON(w, http.StatusAccepted, hookAck{Accepted: id})
}

// PayoutCompleted is a no-op when the approval was already recorded.
func (h *Handler) PayoutCompleted(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.Syncer.OnPayoutCompleted(r.Context(), id)
	writeJSON(w, http.StatusAccepted, hookAck{Accepted: id})
}
