// Package mockapi is an in-memory stand-in for the storefront backend.
//
// It serves the same REST surface the storefront client consumes, wrapped in
// the {success, data} envelope, with JWT bearer auth and role gates. Order
// status changes can be mirrored to Kafka so push feeds have something to
// consume during development.
package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/internal/domain"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/metrics"
	"github.com/niloyhakimai/medistore-client/pkg/middleware"
	"github.com/niloyhakimai/medistore-client/pkg/telemetry"
)

// Publisher delivers order status events. *kafka.Producer satisfies it.
type Publisher interface {
	Produce(ctx context.Context, topic, key string, value []byte) error
}

// Config holds mock backend settings
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
	BcryptCost  int
	StatusTopic string
	RecentCount int
	Tracing     bool
	ServiceName string
	// Idempotency stores order submission records, in memory when nil
	Idempotency middleware.RecordStore
}

// DefaultConfig returns development settings
func DefaultConfig() *Config {
	return &Config{
		JWTSecret:   "dev-only-secret-key-do-not-use-in-production",
		TokenExpiry: 24 * time.Hour,
		StatusTopic: "order.status",
		RecentCount: 5,
		ServiceName: "medistore-mock-api",
	}
}

// Server handles the REST routes
type Server struct {
	config    *Config
	data      *Data
	tokens    *Tokens
	publisher Publisher
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// New creates a Server over data. publisher may be nil.
func New(data *Data, publisher Publisher, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RecentCount == 0 {
		config.RecentCount = 5
	}
	if config.Idempotency == nil {
		config.Idempotency = middleware.NewMemoryRecordStore()
	}
	return &Server{
		config:    config,
		data:      data,
		tokens:    NewTokens(config.JWTSecret, config.TokenExpiry),
		publisher: publisher,
		log:       logger.Get(),
		metrics:   metrics.Default(),
	}
}

// Tokens exposes the token issuer, mainly for tests
func (s *Server) Tokens() *Tokens {
	return s.tokens
}

// Router builds the gin engine with every route mounted under /api
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if s.config.Tracing {
		router.Use(telemetry.TracingMiddleware(s.config.ServiceName))
	}
	router.Use(s.requestMetrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.login)
			auth.POST("/register", s.register)
		}

		api.GET("/medicines", s.listMedicines)
		api.GET("/medicines/:id", s.getMedicine)
		api.GET("/categories", s.listCategories)

		protected := api.Group("")
		protected.Use(s.authMiddleware())
		{
			orders := protected.Group("/orders")
			orders.Use(requireRole(domain.RoleCustomer))
			{
				orders.POST("", middleware.Idempotency(&middleware.IdempotencyConfig{
					Store: s.config.Idempotency,
					Scope: userID,
				}), s.createOrder)
				orders.GET("", s.listOrders)
				orders.PATCH("/:id/cancel", s.cancelOrder)
			}

			admin := protected.Group("/admin")
			admin.Use(requireRole(domain.RoleAdmin))
			{
				admin.GET("/stats", s.adminStats)
				admin.GET("/users", s.adminUsers)
				admin.PATCH("/users/:id", s.adminUpdateUser)
			}

			seller := protected.Group("/seller")
			seller.Use(requireRole(domain.RoleSeller))
			{
				seller.GET("/medicines", s.sellerMedicines)
				seller.POST("/medicines", s.createMedicine)
				seller.PUT("/medicines/:id", s.updateMedicine)
				seller.DELETE("/medicines/:id", s.deleteMedicine)
				seller.GET("/orders", s.sellerOrders)
				seller.PATCH("/orders/:id", s.updateOrderStatus)
			}
		}
	}

	return router
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest("mockapi "+c.Request.Method+" "+route, c.Writer.Status(), time.Since(start))
	}
}

// publish mirrors a status change to the event topic. Failures are logged;
// the request has already succeeded.
func (s *Server) publish(ctx context.Context, o *domain.Order) {
	if s.publisher == nil {
		return
	}
	value, err := json.Marshal(domain.OrderStatusEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.log.Error("Failed to encode order event", "order_id", o.ID, "error", err)
		return
	}
	if err := s.publisher.Produce(ctx, s.config.StatusTopic, o.ID, value); err != nil {
		s.log.Warn("Failed to publish order event", "order_id", o.ID, "status", o.Status, "error", err)
	}
}
