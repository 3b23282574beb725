package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-optimizer/internal/clientstate"
	"cv-optimizer/internal/llm"
	"cv-optimizer/internal/llm/gemini"
	"cv-optimizer/internal/llm/openai"
	"cv-optimizer/internal/optimize"
	"cv-optimizer/internal/services/health"
	"cv-optimizer/internal/shared/config"
	"cv-optimizer/internal/shared/server"
	"cv-optimizer/internal/shared/server/middleware"
	"cv-optimizer/internal/shared/storage/db"
	"cv-optimizer/internal/shared/storage/kv"
	"cv-optimizer/internal/shared/storage/kv/local"
	"cv-optimizer/internal/shared/storage/kv/memory"
	"cv-optimizer/internal/shared/storage/kv/pg"
	kvs3 "cv-optimizer/internal/shared/storage/kv/s3"
	"cv-optimizer/internal/shared/storage/kv/sqlite"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Backend         kv.Store
	LLM             llm.Client
	OptimizeService *optimize.Service
	Registry        *clientstate.Registry
	OptimizeHandler *optimize.Handler
	StateHandler    *clientstate.Handler
	Health          *health.Service

	closers []io.Closer
}

// Build prepares every dependency from cfg and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	backend, err := app.buildBackend(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	client, err := buildLLM(ctx, cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.wire(backend, client)
	return app, nil
}

// New wires an App around an existing backend and chat client.
func New(cfg config.Config, backend kv.Store, client llm.Client) *App {
	app := &App{Config: cfg}
	app.wire(backend, client)
	return app
}

func (a *App) wire(backend kv.Store, client llm.Client) {
	a.Backend = backend
	a.LLM = client
	a.OptimizeService = optimize.NewService(client)
	a.Registry = clientstate.NewRegistry(backend, a.Config.StateQuotaBytes, clientstate.Options{})
	a.OptimizeHandler = optimize.NewHandler(a.OptimizeService)
	a.StateHandler = clientstate.NewHandler(a.Registry, a.OptimizeService)
	a.Health = health.NewService(backend, a.Config.StateStore, a.Config.LLMProvider)
	a.Router = server.NewRouter(server.RouterDeps{
		Config:          a.Config,
		OptimizeHandler: a.OptimizeHandler,
		StateHandler:    a.StateHandler,
		Health:          a.Health,
		Limiter:         middleware.NewRateLimiter(nil),
	})
}

// Close releases database handles opened by Build.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) buildBackend(ctx context.Context) (kv.Store, error) {
	cfg := a.Config
	switch cfg.StateStore {
	case "local":
		return local.New(cfg.LocalStoreDir), nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("STATE_STORE=s3 requires S3_BUCKET")
		}
		return kvs3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "postgres":
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB == nil {
			return memory.New(), nil
		}
		a.DB = sqlDB
		if !db.IsLambdaRuntime() {
			a.closers = append(a.closers, sqlDB)
		}
		return &pg.Store{DB: sqlDB}, nil
	default:
		return memory.New(), nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory state store")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil && !db.IsLambdaRuntime() {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory state store: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: no API key for %s; optimization requests will fail", cfg.LLMProvider)
			return llm.PlaceholderClient{}, nil
		}
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewClient(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	default:
		return openai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, nil)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
