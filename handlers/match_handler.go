package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
	"github.com/dop-amin/foosball-tracker/services"
)

type MatchHandler struct {
	matchService services.MatchService
	auditRepo    repositories.MatchAuditRepository
}

func NewMatchHandler(ms services.MatchService, ar repositories.MatchAuditRepository) *MatchHandler {
	return &MatchHandler{
		matchService: ms,
		auditRepo:    ar,
	}
}

type bracketSlotInput struct {
	TournamentID int `json:"tournament_id"`
	Round        int `json:"round"`
	Slot         int `json:"slot"`
}

type recordMatchInput struct {
	Kind           string            `json:"kind"`
	Team1PlayerIDs []int             `json:"team1_player_ids"`
	Team2PlayerIDs []int             `json:"team2_player_ids"`
	Team1Score     int               `json:"team1_score"`
	Team2Score     int               `json:"team2_score"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        *time.Time        `json:"end_time"`
	Bracket        *bracketSlotInput `json:"bracket"`
}

// RecordHandler обрабатывает POST /matches
func (h *MatchHandler) RecordHandler(w http.ResponseWriter, r *http.Request) {
	var input recordMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	params := services.RecordMatchParams{
		Kind:           models.MatchKind(input.Kind),
		Team1PlayerIDs: input.Team1PlayerIDs,
		Team2PlayerIDs: input.Team2PlayerIDs,
		Team1Score:     input.Team1Score,
		Team2Score:     input.Team2Score,
		StartTime:      input.StartTime,
		EndTime:        input.EndTime,
	}
	if input.Bracket != nil {
		params.Bracket = &services.BracketSlotRef{
			TournamentID: input.Bracket.TournamentID,
			Round:        input.Bracket.Round,
			Slot:         input.Bracket.Slot,
		}
	}

	match, err := h.matchService.Record(r.Context(), params)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /matches?from=...&to=...
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	query := r.URL.Query()
	if fromStr := query.Get("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid from query parameter, expected RFC3339"))
			return
		}
		from = &t
	}
	if toStr := query.Get("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid to query parameter, expected RFC3339"))
			return
		}
		to = &t
	}

	matches, err := h.matchService.List(r.Context(), from, to)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /matches/{matchID}
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PATCH /matches/{matchID} (только админ)
func (h *MatchHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Team1Score *int       `json:"team1_score"`
		Team2Score *int       `json:"team2_score"`
		StartTime  *time.Time `json:"start_time"`
		EndTime    *time.Time `json:"end_time"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Update(r.Context(), id, services.UpdateMatchParams{
		Team1Score: input.Team1Score,
		Team2Score: input.Team2Score,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /matches/{matchID} (только админ)
func (h *MatchHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AuditsHandler обрабатывает GET /matches/{matchID}/audits
func (h *MatchHandler) AuditsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	audits, err := h.auditRepo.ListByMatch(r.Context(), id)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"audits": audits}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
