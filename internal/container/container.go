package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"platoo/storefront/internal/cart"
	"platoo/storefront/internal/checkout"
	"platoo/storefront/internal/client"
	"platoo/storefront/internal/config"
	"platoo/storefront/internal/health"
	"platoo/storefront/internal/pricing"
	"platoo/storefront/internal/queue"
	"platoo/storefront/internal/repository"
	"platoo/storefront/internal/service"
	"platoo/storefront/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Carts      *client.HTTPCartClient
	Orders     *client.HTTPOrderClient
	Catalog    *client.HTTPCatalogClient
	Calculator *pricing.Calculator
	Feed       queue.ChangeFeed
	History    repository.OrderRepository

	db    *pgxpool.Pool
	redis *redis.Client

	mu     sync.Mutex
	memory map[string]*state.MemoryStore // session -> store, when checkout.store is memory
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	calculator, err := pricing.NewCalculator(cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pricing: %w", err)
	}
	container.Calculator = calculator

	container.Carts = client.NewCartClient(cfg.Services, cfg.HTTP)
	container.Orders = client.NewOrderClient(cfg.Services, cfg.HTTP)
	container.Catalog = client.NewCatalogClient(cfg.Services, cfg.HTTP)

	switch cfg.Checkout.Store {
	case "memory":
		container.memory = make(map[string]*state.MemoryStore)
		log.Info("🧠 Using in-memory checkout storage")
	case "redis":
		if err := container.connectRedis(ctx); err != nil {
			container.Close()
			return nil, err
		}
	default:
		container.Close()
		return nil, fmt.Errorf("unknown checkout store %q", cfg.Checkout.Store)
	}

	if cfg.Checkout.Notify {
		if err := container.connectRedis(ctx); err != nil {
			container.Close()
			return nil, err
		}
		container.Feed = queue.NewRedisFeed(container.redis)
	}

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		container.db = db

		if err := repository.EnsureSchema(ctx, db); err != nil {
			container.Close()
			return nil, err
		}
		container.History = repository.NewOrderRepository(db)
		log.Info("✅ Order history database ready")
	}

	return container, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.redis != nil {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.Database,
	})

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("✅ Connected to Redis successfully")
	c.redis = rdb
	return nil
}

// SessionID scopes the configured checkout session to one user, so users
// sharing a Redis never see each other's checkout
func (c *Container) SessionID(userID string) string {
	if userID == "" {
		return c.Config.Checkout.SessionID
	}
	return userID + ":" + c.Config.Checkout.SessionID
}

// SessionStore returns the checkout storage of one session
func (c *Container) SessionStore(sessionID string) state.Store {
	if c.memory == nil {
		ttl := time.Duration(c.Config.Checkout.SessionTTL) * time.Second
		return state.NewRedisStore(c.redis, sessionID, ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	store, ok := c.memory[sessionID]
	if !ok {
		store = state.NewMemoryStore()
		c.memory[sessionID] = store
	}
	return store
}

// Session builds the cart and checkout flow for one user
func (c *Container) Session(userID string) *service.Service {
	sessionID := c.SessionID(userID)

	var notifier checkout.Notifier
	if c.Feed != nil {
		notifier = c.Feed
	}

	return service.NewService(
		userID,
		cart.NewAccessor(c.Carts),
		c.Calculator,
		checkout.NewHandoff(c.SessionStore(sessionID), sessionID, c.Calculator.Places, notifier),
		c.Orders,
		service.Options{
			Catalog:          c.Catalog,
			History:          c.History,
			Feed:             c.Feed,
			MaxEnrichWorkers: c.Config.HTTP.MaxEnrichWorkers,
		},
	)
}

// Probe checks that every backend service answers
func (c *Container) Probe(ctx context.Context) []health.Result {
	return health.Probe(ctx, map[string]string{
		"cart":    c.Config.Services.CartURL,
		"order":   c.Config.Services.OrderURL,
		"catalog": c.Config.Services.CatalogURL,
	}, time.Duration(c.Config.HTTP.Timeout)*time.Second)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	if c.Carts != nil {
		c.Carts.Close()
	}
	if c.Orders != nil {
		c.Orders.Close()
	}
	if c.Catalog != nil {
		c.Catalog.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Debug("Container shut down successfully")
	return nil
}
