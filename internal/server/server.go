package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/appointment"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/auth"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/billing"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/config"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/messaging"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/professional"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/tenant"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/user"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/wallet"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, transport messaging.Transport, gateway billing.Gateway) *Server {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	rateLimiter := NewRateLimiter(10, 20, 3*time.Minute)
	router.Use(RateLimitMiddleware(rateLimiter))

	// Repositories.
	tenantRepo := tenant.NewRepository(db)
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	billingRepo := billing.NewRepository(db)
	professionalRepo := professional.NewRepository(db)
	appointmentRepo := appointment.NewRepository(db)

	// Services. The billing repository doubles as the subscription
	// source for entitlement resolution.
	resolver := plan.NewResolver(tenantRepo, billingRepo)
	guard := plan.NewGuard(resolver, professionalRepo, nil)
	ledger := wallet.NewLedger(walletRepo, resolver)
	billingService := billing.NewService(billingRepo, ledger, tenantRepo, gateway)
	messenger := messaging.NewService(ledger, guard, transport)
	userService := user.NewService(userRepo, tenantRepo, cfg.JWTSecret)

	// Handlers.
	userHandler := user.NewHandler(userService)
	walletHandler := wallet.NewHandler(ledger)
	planHandler := plan.NewHandler(resolver)
	billingHandler := billing.NewHandler(billingService)
	professionalHandler := professional.NewHandler(professionalRepo, guard)
	appointmentHandler := appointment.NewHandler(appointmentRepo, guard, messenger)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	// Gateway callbacks are unauthenticated; correlation happens via
	// payment ids, not sessions.
	router.POST("/billing/webhook", billingHandler.Webhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)

		protected.GET("/wallet", walletHandler.GetSnapshot)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)
		protected.GET("/wallet/topups", walletHandler.ListTopups)
		protected.POST("/wallet/topups", billingHandler.CreateTopup)

		protected.GET("/plan", planHandler.GetEntitlement)
		protected.GET("/plans", billingHandler.ListPlans)
		protected.GET("/packs", billingHandler.ListPacks)
		protected.POST("/billing/subscribe", billingHandler.Subscribe)

		protected.POST("/professionals", professionalHandler.CreateProfessional)
		protected.GET("/professionals", professionalHandler.ListProfessionals)
		protected.POST("/professionals/:professionalID/deactivate", professionalHandler.DeactivateProfessional)
		protected.POST("/services", professionalHandler.CreateService)
		protected.GET("/services", professionalHandler.ListServices)

		protected.POST("/appointments", appointmentHandler.Create)
		protected.GET("/appointments", appointmentHandler.List)
		protected.POST("/appointments/:appointmentID/cancel", appointmentHandler.Cancel)
		protected.POST("/appointments/:appointmentID/notify", appointmentHandler.Notify)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
