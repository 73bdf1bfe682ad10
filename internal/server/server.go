package server

import (
	"fmt"
	"net/http"
	"time"

	"inventory-api/internal/config"
	"inventory-api/internal/database"
	custommiddleware "inventory-api/internal/middleware"
	"inventory-api/internal/repository"
	"inventory-api/internal/service"
	"inventory-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewRedisClient builds the client backing the rate limiter. Connectivity
// is not checked here; the limiter lets requests through while Redis is
// unreachable.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service, redisClient *redis.Client) *Server {
	router := NewRouter(cfg, logger, dbService, redisClient)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      otelhttp.NewHandler(router, "inventory-api", otelhttp.WithFilter(traceable)),
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     dbService,
		redis:  redisClient,
	}
}

// NewRouter wires repositories, services and handlers into a chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, dbService database.Service, redisClient *redis.Client) chi.Router {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := dbService.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	db := dbService.DB()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	saleQueryRepo := repository.NewSaleQueryRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT)
	productService := service.NewProductService(productRepo, saleRepo)
	categoryService := service.NewCategoryService(categoryRepo, saleRepo)
	saleService := service.NewSaleService(txManager, saleRepo, saleQueryRepo)
	analyticsService := service.NewAnalyticsService(saleQueryRepo, cfg.Server.Location())

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	authLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            window,
		KeyPrefix:         "ratelimit:auth",
	}, logger)
	searchLimit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            window,
		KeyPrefix:         "ratelimit:search",
	}, logger)

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, authLimit)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware, searchLimit)
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewSaleHandler(saleService, analyticsService, logger).RegisterRoutes(router, authMiddleware)

	return router
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

// traceable keeps health checks out of the trace stream
func traceable(r *http.Request) bool {
	return r.URL.Path != "/health"
}
