package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/api"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/config"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/logging"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/repository/mongo"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/service"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/storage"
	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("Could not load config")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.FormatJSON)
	logrus.Info("Starting TreeniTaastu server...")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logrus.WithError(err).Fatal("Could not connect to MongoDB")
	}
	defer func() {
		logrus.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logrus.WithError(err).Error("Failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logrus.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("templates"))
		mongo.EnsureProgramIndexes(ctx, appDB.Collection("programs"))
		mongo.EnsureDayIndexes(ctx, appDB.Collection("program_days"))
		mongo.EnsureItemIndexes(ctx, appDB.Collection("program_items"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("sessions"))
		mongo.EnsureSetLogIndexes(ctx, appDB.Collection("set_logs"))
		mongo.EnsureNoteIndexes(ctx, appDB.Collection("exercise_notes"))
		mongo.EnsurePreferenceIndexes(ctx, appDB.Collection("set_weight_prefs"))
		mongo.EnsureFeedbackIndexes(ctx, appDB.Collection("progression_feedback"))
		mongo.EnsureEventIndexes(ctx, appDB.Collection("workout_events"))
		mongo.EnsureUploadIndexes(ctx, appDB.Collection("uploads"))
		logrus.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize S3 storage")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	dayRepo := mongo.NewMongoDayRepository(appDB)
	itemRepo := mongo.NewMongoItemRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	setLogRepo := mongo.NewMongoSetLogRepository(appDB)
	noteRepo := mongo.NewMongoNoteRepository(appDB)
	prefRepo := mongo.NewMongoPreferenceRepository(appDB)
	feedbackRepo := mongo.NewMongoFeedbackRepository(appDB)
	eventRepo := mongo.NewMongoEventRepository(appDB)
	uploadRepo := mongo.NewMongoUploadRepository(appDB)

	// --- Background Task Queue ---
	queue := tasks.NewQueue(cfg.Tasks.Buffer, cfg.Tasks.Workers, cfg.Tasks.MaxAttempts, cfg.Tasks.RetryDelay)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	progressionService := service.NewProgressionService(itemRepo, sessionRepo, noteRepo, feedbackRepo)
	sessionService := service.NewSessionService(
		programRepo, dayRepo, itemRepo, sessionRepo,
		setLogRepo, noteRepo, prefRepo, eventRepo,
		queue, progressionService,
	)
	adminService := service.NewAdminService(userRepo, templateRepo, programRepo, dayRepo, itemRepo, uploadRepo, eventRepo, fileStorage)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default()

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, authService, sessionService, progressionService, adminService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logrus.WithField("address", cfg.Server.Address).Info("Server starting")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("ListenAndServe error")
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	// Drain queued background writes before the DB connection goes away.
	if err := queue.Close(ctxShutdown); err != nil {
		logrus.WithError(err).Warn("Background queue did not drain in time")
	}

	logrus.Info("Server exiting.")
}
