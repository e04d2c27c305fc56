package container

import (
	"context"
	"fmt"
	"time"

	"storefront-backend/internal/config"
	"storefront-backend/internal/domains/promotion/handler"
	"storefront-backend/internal/domains/promotion/repository"
	"storefront-backend/internal/domains/promotion/service"
	infracache "storefront-backend/internal/infrastructure/cache"
	"storefront-backend/internal/infrastructure/database"
	"storefront-backend/pkg/cache"
	"storefront-backend/pkg/jwt"
	"storefront-backend/pkg/logger"
)

// Container wires every layer of the application together.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager

	// Repositories
	PromotionRepo repository.PromotionRepository

	// Services
	PromotionService service.ServiceInterface

	// Handlers
	PromotionPublicHandler *handler.PublicHandler
	PromotionAdminHandler  *handler.AdminHandler
}

// NewContainer builds the dependency graph bottom-up: config, database,
// cache, repositories, services, handlers.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	// 1. Database
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	c.DB = database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.DB.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := c.DB.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	// 2. Cache. The service layer degrades gracefully without it, so a
	// Redis outage at startup must not take the API down.
	redisCache, err := infracache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", err)
	} else {
		c.Cache = redisCache
	}

	// 3. JWT
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// 4. Layers
	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
		"cache":       c.Cache != nil,
	})

	return c, nil
}

func (c *Container) initRepositories() {
	c.PromotionRepo = repository.NewPostgresRepository(c.DB.Pool)
}

func (c *Container) initServices() {
	c.PromotionService = service.NewPromotionService(c.PromotionRepo, c.DB.Pool, c.Cache)
}

func (c *Container) initHandlers() {
	c.PromotionPublicHandler = handler.NewPublicHandler(c.PromotionService)
	c.PromotionAdminHandler = handler.NewAdminHandler(c.PromotionService)
}

// Cleanup releases external resources. Call on shutdown.
func (c *Container) Cleanup() {
	if closer, ok := c.Cache.(interface{ Close() error }); ok && c.Cache != nil {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close cache", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}
}
