package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dop-amin/foosball-tracker/services"
)

type LeaderboardHandler struct {
	playerService   services.PlayerService
	snapshotService services.SnapshotService
}

func NewLeaderboardHandler(ps services.PlayerService, ss services.SnapshotService) *LeaderboardHandler {
	return &LeaderboardHandler{
		playerService:   ps,
		snapshotService: ss,
	}
}

// CurrentHandler обрабатывает GET /leaderboard — живой рейтинг.
func (h *LeaderboardHandler) CurrentHandler(w http.ResponseWriter, r *http.Request) {
	players, err := h.playerService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SnapshotHandler обрабатывает GET /leaderboard/snapshots?date=2006-01-02
func (h *LeaderboardHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		badRequestResponse(w, r, errors.New("date query parameter is required"))
		return
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid date query parameter, expected YYYY-MM-DD"))
		return
	}

	snapshots, err := h.snapshotService.ListByDate(r.Context(), day)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"snapshots": snapshots}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PlayerHistoryHandler обрабатывает GET /players/{playerID}/history
func (h *LeaderboardHandler) PlayerHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	snapshots, err := h.snapshotService.ListByPlayer(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": snapshots}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
