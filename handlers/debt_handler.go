package handlers

import (
	"net/http"

	"github.com/dop-amin/foosball-tracker/services"
)

type DebtHandler struct {
	debtService services.CakeDebtService
}

func NewDebtHandler(ds services.CakeDebtService) *DebtHandler {
	return &DebtHandler{debtService: ds}
}

// ListHandler обрабатывает GET /debts
func (h *DebtHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	debts, err := h.debtService.ListAll(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"debts": debts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByPlayerHandler обрабатывает GET /players/{playerID}/debts
func (h *DebtHandler) ListByPlayerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	debts, err := h.debtService.ListByPlayer(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"debts": debts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SettleHandler обрабатывает POST /debts/settle
func (h *DebtHandler) SettleHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		DebtorID   int `json:"debtor_id"`
		CreditorID int `json:"creditor_id"`
		Amount     int `json:"amount"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	debt, err := h.debtService.Settle(r.Context(), input.DebtorID, input.CreditorID, input.Amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"debt": debt}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
