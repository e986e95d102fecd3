package main

import (
	"log"

	api "mailgreen-backend/cmd/api"
	analysisdomain "mailgreen-backend/internal/analysis/domain"
	analysisRepo "mailgreen-backend/internal/analysis/repository"
	analysisUsecase "mailgreen-backend/internal/analysis/usecase"
	authdomain "mailgreen-backend/internal/auth/domain"
	authRepo "mailgreen-backend/internal/auth/repository"
	authUsecase "mailgreen-backend/internal/auth/usecase"
	"mailgreen-backend/internal/session"
	"mailgreen-backend/pkg/config"
	"mailgreen-backend/pkg/database"
	"mailgreen-backend/pkg/embed"
	"mailgreen-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.UserCredentials{},
		&analysisdomain.AnalysisTask{},
		&analysisdomain.MailEmbedding{},
		&analysisdomain.MajorTopic{},
		&analysisdomain.MajorTopicEmbedding{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	taskRepo := analysisRepo.NewTaskRepository(db)
	mailRepo := analysisRepo.NewMailRepository(db)
	topicRepo := analysisRepo.NewTopicRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize embedding provider
	embedder, err := embed.NewEmbedder(embed.Config{
		Provider:      embed.ProviderType(cfg.EmbedProvider),
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		Dimension:     cfg.EmbedDimension,
	})
	if err != nil {
		log.Fatal("Failed to initialize embedding provider:", err)
	}

	// Initialize the analysis pipeline
	classifier := analysisUsecase.NewTopicClassifier(mailRepo, topicRepo)
	runner := analysisUsecase.NewRunner(taskRepo, mailRepo, userRepo, gmailService, embedder, classifier,
		cfg.FetchBatchSize, cfg.FetchMaxRetries, cfg.InsertChunkSize)

	analysisWorker := analysisUsecase.NewAnalysisWorkerService(runner, cfg.AnalysisWorkers)
	analysisWorker.Start()
	log.Println("Analysis worker service started")

	// Per-user selection memory for follow-up mail actions
	sessionStore := session.NewStore()
	defer sessionStore.Close()

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	analysisUsecaseInstance := analysisUsecase.NewAnalysisUsecase(taskRepo, mailRepo, topicRepo, runner, analysisWorker, sessionStore)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, analysisUsecaseInstance, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
