package handlers

import (
	"net/http"

	"github.com/dop-amin/foosball-tracker/services"
)

type AdminHandler struct {
	recalcService services.RecalculationService
}

func NewAdminHandler(rs services.RecalculationService) *AdminHandler {
	return &AdminHandler{recalcService: rs}
}

// RecalculateHandler обрабатывает POST /admin/recalculate (только админ).
// Полная перестройка рейтингов, долгов и снапшотов из истории матчей.
func (h *AdminHandler) RecalculateHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.recalcService.RederiveAll(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "recalculated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
