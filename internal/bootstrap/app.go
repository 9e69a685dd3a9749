// Package bootstrap builds the application dependency graph from
// configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"safetyagent-backend/internal/chat"
	"safetyagent-backend/internal/chunker"
	"safetyagent-backend/internal/documents"
	"safetyagent-backend/internal/llm"
	"safetyagent-backend/internal/llm/openai"
	"safetyagent-backend/internal/services/health"
	"safetyagent-backend/internal/shared/config"
	"safetyagent-backend/internal/shared/server"
	"safetyagent-backend/internal/shared/storage/db"
	"safetyagent-backend/internal/shared/storage/object"
	localstore "safetyagent-backend/internal/shared/storage/object/local"
	s3store "safetyagent-backend/internal/shared/storage/object/s3"
	"safetyagent-backend/internal/vectorstore"
)

// App holds the wired application dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	Vectors   *vectorstore.Store
	Embedder  llm.Embedder
	Generator llm.Generator

	DocumentsRepo    documents.DocumentsRepo
	DocumentsService *documents.Service
	ChatService      *chat.Service
	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
	Health           *health.Service
}

// Build prepares all dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := buildVectors(cfg)
	if err != nil {
		return nil, err
	}

	embedder, generator, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Vectors:   vectors,
		Embedder:  embedder,
		Generator: generator,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		DocumentHandler: app.DocumentsHandler,
		ChatHandler:     app.ChatHandler,
		Health:          app.Health,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			sqlDB.Close()
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildVectors(cfg config.Config) (*vectorstore.Store, error) {
	if strings.TrimSpace(cfg.VectorStorePath) == "" {
		return vectorstore.NewInMemory()
	}
	return vectorstore.New(cfg.VectorStorePath)
}

func buildLLM(cfg config.Config) (llm.Embedder, llm.Generator, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; chat and ingestion will fail until configured")
			return llm.Placeholder{}, llm.Placeholder{}, nil
		}
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	client, err := openai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.EmbeddingModel)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

func buildServices(app *App) {
	var docRepo documents.DocumentsRepo
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Store:           app.Store,
		Repo:            docRepo,
		Vectors:         app.Vectors,
		Embedder:        app.Embedder,
		Chunker:         chunker.New(app.Config.ChunkSize, app.Config.ChunkOverlap),
		VectorStorePath: app.Config.VectorStorePath,
	}
	chatSvc := &chat.Service{
		Embedder:      app.Embedder,
		Generator:     app.Generator,
		Vectors:       app.Vectors,
		TopK:          app.Config.RetrievalTopK,
		MinSimilarity: app.Config.MinSimilarity,
	}

	app.DocumentsRepo = docRepo
	app.DocumentsService = docSvc
	app.ChatService = chatSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ChatHandler = chat.NewHandler(chatSvc)
	app.Health = health.NewService(app.Vectors.Count)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
