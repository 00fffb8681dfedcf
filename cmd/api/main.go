package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/submitech/submitech-api/internal/config"
	"github.com/submitech/submitech-api/internal/database"
	"github.com/submitech/submitech-api/internal/handler"
	"github.com/submitech/submitech-api/internal/middleware"
	"github.com/submitech/submitech-api/internal/repository"
	"github.com/submitech/submitech-api/internal/router"
	"github.com/submitech/submitech-api/internal/service"
	"github.com/submitech/submitech-api/pkg/ai"
	cloud "github.com/submitech/submitech-api/pkg/cloudinary"
	"github.com/submitech/submitech-api/pkg/diagram"
	"github.com/submitech/submitech-api/pkg/grammar"
	"github.com/submitech/submitech-api/pkg/textnorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
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
		defer natsConn.Drain()
	}

	store, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	normalizer, err := textnorm.New()
	if err != nil {
		log.Fatalf("failed to build text normalizer: %v", err)
	}

	grammarScorer := grammar.NewScorer(nil)
	if cfg.GrammarCorpusFile != "" {
		grammarScorer, err = grammar.NewScorerFromFile(cfg.GrammarCorpusFile)
		if err != nil {
			log.Fatalf("failed to load grammar corpus: %v", err)
		}
	}

	var embedder ai.Embedder
	if cfg.OpenAIAPIKey != "" {
		openaiEmbedder, err := ai.NewOpenAIEmbedder(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  ai.EmbeddingModel(cfg.EmbeddingModel),
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create embedder: %v", err)
		}
		embedder = openaiEmbedder
		if redisClient != nil {
			embedder = ai.NewCachedEmbedder(openaiEmbedder, redisClient, cfg.EmbeddingCacheTTL, logger)
		}
	} else {
		logger.Warn().Msg("no openai api key configured, similarity scores will degrade to zero")
	}

	similarityScorer := ai.NewSimilarityScorer(embedder, logger)
	diagramConverter := diagram.NewConverter(&diagram.TesseractClient{}, logger)
	cohortScorer := service.NewCohortScorer(logger)

	notificationService := service.NewNotificationService(notificationRepo, natsConn, cfg.NATSSubject, logger)
	evaluationService := service.NewEvaluationService(service.EvaluationConfig{
		Submissions:         submissionRepo,
		Assignments:         assignmentRepo,
		Store:               store,
		Normalizer:          normalizer,
		TextScorer:          similarityScorer,
		Grammar:             grammarScorer,
		Diagrams:            diagramConverter,
		Cohort:              cohortScorer,
		Notifier:            notificationService,
		Grading:             cfg.Grading,
		PlagiarismThreshold: cfg.PlagiarismThreshold,
		Workers:             cfg.EvaluationWorkers,
		QueueSize:           cfg.EvaluationQueueSize,
		Logger:              logger,
	})

	assignmentService := service.NewAssignmentService(assignmentRepo, validate, store, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, studentRepo, validate, store, evaluationService, logger)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, evaluationService, logger)
	plagiarismHandler := handler.NewPlagiarismHandler(assignmentService, evaluationService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	evaluationService.Start(workerCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    32 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:   assignmentHandler,
		SubmissionHandler:   submissionHandler,
		PlagiarismHandler:   plagiarismHandler,
		NotificationHandler: notificationHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
