package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Kadalzz/edu-project-sub000/internal/config"
	"github.com/Kadalzz/edu-project-sub000/internal/database"
	"github.com/Kadalzz/edu-project-sub000/internal/handler"
	"github.com/Kadalzz/edu-project-sub000/internal/middleware"
	"github.com/Kadalzz/edu-project-sub000/internal/models"
	"github.com/Kadalzz/edu-project-sub000/internal/repository"
	"github.com/Kadalzz/edu-project-sub000/internal/router"
	"github.com/Kadalzz/edu-project-sub000/internal/service"
	cloud "github.com/Kadalzz/edu-project-sub000/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Assignment{},
		&models.Question{},
		&models.QuestionChoice{},
		&models.Attempt{},
		&models.Answer{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		uploader, err = cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
	}

	validate := service.NewValidator()

	assignmentRepo := repository.NewAssignmentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	notifier := service.NewNotifier(redisClient, natsConn, cfg.NotificationChannel, logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, studentRepo, redisClient, cfg.VisibleListCacheTTL, validate, logger)
	attemptService := service.NewAttemptService(attemptRepo, assignmentRepo, studentRepo, uploader, notifier, validate, logger)
	gradingService := service.NewGradingService(attemptRepo, assignmentRepo, studentRepo, notifier, validate, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	attemptHandler := handler.NewAttemptHandler(assignmentService, attemptService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		AttemptHandler:    attemptHandler,
		GradingHandler:    gradingHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
