package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/dop-amin/foosball-tracker/brackets"
	"github.com/dop-amin/foosball-tracker/config"
	"github.com/dop-amin/foosball-tracker/db"
	"github.com/dop-amin/foosball-tracker/handlers"
	"github.com/dop-amin/foosball-tracker/repositories"
	"github.com/dop-amin/foosball-tracker/routes"
	"github.com/dop-amin/foosball-tracker/services"
	"github.com/dop-amin/foosball-tracker/storage"
)

const snapshotInterval = time.Hour // Как часто обновляется снапшот текущего дня

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Загрузчик аватарок (Cloudflare R2) — опционален.
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("avatar uploads disabled: Cloudflare R2 is not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	debtRepo := repositories.NewPostgresDebtRepository(dbConn)
	snapshotRepo := repositories.NewPostgresSnapshotRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketMatchRepository(dbConn)
	auditRepo := repositories.NewPostgresMatchAuditRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(cfg.JWTSecretKey, cfg.AdminPasswordHash)
	ratingService := services.NewRatingService(playerRepo, matchRepo, logger)
	debtService := services.NewCakeDebtService(debtRepo, matchRepo)
	snapshotService := services.NewSnapshotService(snapshotRepo, playerRepo, matchRepo)
	recalcService := services.NewRecalculationService(ratingService, debtService, snapshotService, logger)
	bracketService := services.NewBracketService(
		tournamentRepo,
		bracketRepo,
		brackets.NewSingleEliminationGenerator(),
		wsHub,
		logger,
	)
	matchService := services.NewMatchService(matchRepo, playerRepo, auditRepo, ratingService, debtService, bracketService, recalcService, logger)
	playerService := services.NewPlayerService(playerRepo, uploader, logger)
	statsService := services.NewStatisticsService(playerRepo, matchRepo)
	tournamentService := services.NewTournamentService(tournamentRepo, bracketRepo, playerRepo)
	logger.Info("services initialized")

	// Планировщик снапшотов: догоняет пропущенные дни при старте,
	// затем поддерживает снапшот текущего дня.
	go func() {
		if err := snapshotService.RecalculateAllSnapshots(context.Background()); err != nil {
			logger.Error("scheduler: initial snapshot rebuild failed", slog.Any("error", err))
		}

		ticker := time.NewTicker(snapshotInterval)
		defer ticker.Stop()
		logger.Info("snapshot scheduler started", slog.Duration("interval", snapshotInterval))

		for range ticker.C {
			if err := snapshotService.CreateSnapshot(context.Background(), time.Now().UTC()); err != nil {
				logger.Error("scheduler: daily snapshot failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	router := routes.InitRoutes(routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Player:      handlers.NewPlayerHandler(playerService, statsService),
		Match:       handlers.NewMatchHandler(matchService, auditRepo),
		Debt:        handlers.NewDebtHandler(debtService),
		Leaderboard: handlers.NewLeaderboardHandler(playerService, snapshotService),
		Tournament:  handlers.NewTournamentHandler(tournamentService, bracketService),
		Admin:       handlers.NewAdminHandler(recalcService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, logger),
	}, authService)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
