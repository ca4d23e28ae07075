package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dop-amin/foosball-tracker/handlers"
	"github.com/dop-amin/foosball-tracker/middleware"
	"github.com/dop-amin/foosball-tracker/services"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Player      *handlers.PlayerHandler
	Match       *handlers.MatchHandler
	Debt        *handlers.DebtHandler
	Leaderboard *handlers.LeaderboardHandler
	Tournament  *handlers.TournamentHandler
	Admin       *handlers.AdminHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, authService services.AuthService) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	requireAdmin := middleware.RequireAdmin(authService)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Post("/auth/login", h.Auth.LoginHandler)

	router.Route("/players", func(r chi.Router) {
		r.Get("/", h.Player.ListHandler)
		r.Post("/", h.Player.CreateHandler)
		r.Get("/{playerID}", h.Player.GetByIDHandler)
		r.Patch("/{playerID}", h.Player.RenameHandler)
		r.Put("/{playerID}/avatar", h.Player.UploadAvatarHandler)
		r.Get("/{playerID}/statistics", h.Player.StatisticsHandler)
		r.Get("/{playerID}/debts", h.Debt.ListByPlayerHandler)
		r.Get("/{playerID}/history", h.Leaderboard.PlayerHistoryHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", h.Match.ListHandler)
		r.Post("/", h.Match.RecordHandler)
		r.Get("/{matchID}", h.Match.GetByIDHandler)
		r.Get("/{matchID}/audits", h.Match.AuditsHandler)

		// Правки задним числом — только для админа.
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Patch("/{matchID}", h.Match.UpdateHandler)
			r.Delete("/{matchID}", h.Match.DeleteHandler)
		})
	})

	router.Route("/debts", func(r chi.Router) {
		r.Get("/", h.Debt.ListHandler)
		r.Post("/settle", h.Debt.SettleHandler)
	})

	router.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", h.Leaderboard.CurrentHandler)
		r.Get("/snapshots", h.Leaderboard.SnapshotHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListHandler)
		r.Post("/", h.Tournament.CreateHandler)
		r.Get("/{tournamentID}", h.Tournament.GetByIDHandler)
		r.Post("/{tournamentID}/participants", h.Tournament.AddParticipantHandler)
		r.Post("/{tournamentID}/bracket", h.Tournament.GenerateBracketHandler)
		r.Post("/{tournamentID}/results", h.Tournament.RecordResultHandler)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/recalculate", h.Admin.RecalculateHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
