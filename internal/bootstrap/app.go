package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"casa-backend/internal/analyses"
	googleauth "casa-backend/internal/auth"
	"casa-backend/internal/chat"
	"casa-backend/internal/koyeb"
	"casa-backend/internal/llm"
	openai "casa-backend/internal/llm/openai"
	"casa-backend/internal/media"
	"casa-backend/internal/pipeline"
	"casa-backend/internal/queue"
	"casa-backend/internal/services/health"
	"casa-backend/internal/shared/config"
	"casa-backend/internal/shared/server"
	"casa-backend/internal/shared/server/middleware"
	"casa-backend/internal/shared/storage/db"
	"casa-backend/internal/shared/storage/object"
	azurestore "casa-backend/internal/shared/storage/object/azure"
	localstore "casa-backend/internal/shared/storage/object/local"
	s3store "casa-backend/internal/shared/storage/object/s3"
	"casa-backend/internal/shared/telemetry"
	"casa-backend/internal/users"
)

// App holds shared dependencies and the assembled router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Events   queue.Client
	Platform *koyeb.Client

	AnalysesService *analyses.Service
	MediaService    *media.Service
	ChatService     *chat.Service
	UsersService    *users.Service
}

// Build prepares every dependency and wires the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	telemetry.Configure(telemetry.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	events, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Events: events,
		Platform: koyeb.NewClient(koyeb.Options{
			APIKey:       cfg.KoyebAPIKey,
			BaseURL:      cfg.KoyebBaseURL,
			Timeout:      cfg.KoyebTimeout,
			PollInterval: cfg.KoyebPollInterval,
			MaxWait:      cfg.KoyebMaxWait,
		}),
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	var (
		analysisRepo analyses.Repo
		mediaRepo    media.Repo
		userRepo     users.Repo
	)
	if sqlDB != nil {
		analysisRepo = &analyses.PGRepo{DB: sqlDB}
		mediaRepo = &media.PGRepo{DB: sqlDB}
		userRepo = &users.PGRepo{DB: sqlDB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		mediaRepo = media.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	app.AnalysesService = &analyses.Service{
		Repo: analysisRepo,
		Stages: pipeline.NewStages(pipeline.StagesConfig{
			Platform:    app.Platform,
			ProbeClient: &http.Client{Timeout: cfg.ProbeTimeout},
			Clock:       clockwork.NewRealClock(),
		}),
		Events: events,
	}
	app.MediaService = &media.Service{
		Store:           store,
		Repo:            mediaRepo,
		StorageProvider: cfg.ObjectStoreType,
	}
	app.UsersService = users.NewService(userRepo)
	app.ChatService = &chat.Service{
		Reports:     app.AnalysesService,
		LLM:         llmClient,
		Language:    cfg.ChatLanguage,
		Preferences: app.UsersService,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          health.NewService(sqlDB),
		AnalysisHandler: analyses.NewHandler(app.AnalysesService),
		MediaHandler:    media.NewHandler(app.MediaService),
		ChatHandler:     chat.NewHandler(app.ChatService),
		UserHandler:     users.NewHandler(app.UsersService, app.AnalysesService),
		GoogleAuth: googleauth.NewGoogleService(googleauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			UIRedirect:   cfg.UIRedirectURL,
		}, app.UsersService),
		RateLimiter: middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_disabled", map[string]any{"reason": "DATABASE_URL empty; using in-memory repositories"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_disabled", map[string]any{"reason": "connect failed; using in-memory repositories", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Config{
			Region:     cfg.AWSRegion,
			Bucket:     cfg.S3Bucket,
			Prefix:     cfg.S3Prefix,
			KMSKeyID:   cfg.SSEKMSKeyID,
			PublicBase: cfg.S3PublicBaseURL,
		})
	case "azure":
		return azurestore.New(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer, cfg.AzurePrefix)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL+strings.TrimSuffix(server.PublicMediaPrefix, "/")), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" || strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		telemetry.Warn("bootstrap.llm_disabled", map[string]any{"provider": cfg.LLMProvider})
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAITimeout)
	if err != nil {
		return nil, err
	}
	return llm.Retrying{Base: client, Attempts: 2, Delay: 300 * time.Millisecond}, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
