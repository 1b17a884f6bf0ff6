package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/avtoscan/reports-backend/internal/config"
	"github.com/avtoscan/reports-backend/internal/db"
	httpHandlers "github.com/avtoscan/reports-backend/internal/http/handlers"
	httpRouter "github.com/avtoscan/reports-backend/internal/http/router"
	"github.com/avtoscan/reports-backend/internal/logger"
	"github.com/avtoscan/reports-backend/internal/mailer"
	"github.com/avtoscan/reports-backend/internal/repository"
	"github.com/avtoscan/reports-backend/internal/service"
	"github.com/avtoscan/reports-backend/internal/storage"
	"github.com/avtoscan/reports-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.UploadStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	mail := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	tagRepo := repository.NewTagRepository(dbConn)
	imageRepo := repository.NewImageRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager, mail, cfg.ResetTokenTTL, cfg.PublicBaseURL)
	tagService := service.NewTagService(tagRepo)
	reportService := service.NewReportService(reportRepo, imageRepo, tagService, hub, photoStorage)
	userService := service.NewUserService(userRepo, photoStorage, imageRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	reportHandler := httpHandlers.NewReportHandler(reportService)
	imageHandler := httpHandlers.NewImageHandler(reportService)
	tagHandler := httpHandlers.NewTagHandler(tagService)
	userHandler := httpHandlers.NewUserHandler(userService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, reportHandler, imageHandler, tagHandler, userHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
