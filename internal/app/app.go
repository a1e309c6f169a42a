package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audite/internal/cache"
	"audite/internal/conditional"
	"audite/internal/config"
	"audite/internal/metrics"
	"audite/internal/repository"
	"audite/internal/service"
	"audite/internal/suggestion"
	"audite/internal/transport/rest"
	"audite/internal/transport/ws"
)

// App is the dependency container built once at process start
type App struct {
	Mongo *mongo.Client
	Redis *redis.Client

	CategoryRepo repository.CategoryRepo
	FormRepo     repository.FormRepo
	QuestionRepo repository.QuestionRepo
	AnswerRepo   repository.AnswerRepository

	DraftCache      cache.DraftCache
	ResultCache     cache.ResultCache
	SuggestionStats cache.SuggestionStats

	AuthService       *service.AuthService
	FormService       *service.FormService
	SessionService    *service.SessionService
	SuggestionService *service.SuggestionService

	Hub     *ws.Hub
	Metrics *metrics.Metrics
	Handler http.Handler
}

// New connects to MongoDB and Redis and wires every service
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("ping Redis: %w", err)
	}
	logger.Info("connected to Redis", "addr", cfg.Redis.Addr)

	a := Build(cfg, mongoClient.Database(cfg.Mongo.Database), rdb, logger)
	a.Mongo = mongoClient

	if err := a.AnswerRepo.EnsureIndexes(ctx); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("ensure answer indexes: %w", err)
	}
	return a, nil
}

// Build wires repositories, caches and services over existing connections
func Build(cfg config.Config, db *mongo.Database, rdb *redis.Client, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	m := metrics.New()

	a := &App{
		Redis:           rdb,
		CategoryRepo:    repository.NewCategoryRepo(db),
		FormRepo:        repository.NewFormRepo(db),
		QuestionRepo:    repository.NewQuestionRepo(db),
		AnswerRepo:      repository.NewAnswerRepository(db),
		DraftCache:      cache.NewDraftCache(rdb, cfg.Sessions.DraftTTL),
		ResultCache:     cache.NewResultCache(rdb, cfg.Sessions.ResultTTL),
		SuggestionStats: cache.NewSuggestionStats(rdb),
		Metrics:         m,
	}

	evaluator := conditional.NewEvaluator(cfg.Policy.Condition, logger)
	mapper := suggestion.NewMapper(suggestion.DefaultCatalog(), cfg.Policy.Category, logger)

	a.AuthService = service.NewAuthService(cfg.Auth)
	a.FormService = service.NewFormService(a.CategoryRepo, a.FormRepo, a.QuestionRepo, evaluator, m, logger)
	a.SuggestionService = service.NewSuggestionService(a.CategoryRepo, a.FormRepo, a.QuestionRepo, a.AnswerRepo,
		a.ResultCache, a.SuggestionStats, mapper, m, logger)
	a.SessionService = service.NewSessionService(a.FormRepo, a.QuestionRepo, a.AnswerRepo, a.DraftCache,
		evaluator, a.SuggestionService, m, logger)

	// Inject broadcaster (the hub implements service.Broadcaster)
	a.Hub = ws.NewHub(m, logger)
	a.SessionService.SetBroadcaster(a.Hub)

	a.Handler = rest.NewRouter(&rest.Container{
		AuthService:        a.AuthService,
		FormService:        a.FormService,
		SessionService:     a.SessionService,
		SuggestionService:  a.SuggestionService,
		WSHub:              a.Hub,
		Metrics:            m,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Logger:             logger,
	})
	return a
}

// Close stops the hub and releases the connections
func (a *App) Close(ctx context.Context) error {
	if a.Hub != nil {
		a.Hub.Shutdown()
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Mongo != nil {
		errs = append(errs, a.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
